// Package chocolatey installs Windows packages with the Chocolatey CLI.
package chocolatey

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/alexisbeaulieu97/hostprep/internal/adapters/command"
	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

var packageName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Manager implements ports.PackageManager.
type Manager struct {
	runner ports.CommandRunner
	binary string
}

var _ ports.PackageManager = (*Manager)(nil)

// New returns a manager invoking choco through runner.
func New(runner ports.CommandRunner) *Manager {
	return &Manager{runner: runner, binary: "choco"}
}

// Installed reports whether name is installed locally. A missing choco
// binary is reported as not installed so the install step can explain it.
func (m *Manager) Installed(ctx context.Context, name string) (bool, string, error) {
	if err := validateName(name); err != nil {
		return false, "", err
	}

	res, err := m.runner.Run(ctx, m.binary, "list", "--local-only", "--exact", name, "--limit-output")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("choco list %s: %w", name, err)
	}
	if !res.Success() {
		return false, "", &command.ExitError{Command: "choco list " + name, Result: res}
	}

	for _, line := range strings.Split(res.Stdout, "\n") {
		pkg, version, ok := strings.Cut(strings.TrimSpace(line), "|")
		if ok && strings.EqualFold(pkg, name) {
			return true, version, nil
		}
	}
	return false, "", nil
}

// Install installs name, pinned to version when one is given. choco install
// is a no-op for a package already present at any version, so a pinned
// version that differs from the installed one goes through upgrade instead.
func (m *Manager) Install(ctx context.Context, name, version string) error {
	if err := validateName(name); err != nil {
		return err
	}

	verb := "install"
	if version != "" {
		ok, current, err := m.Installed(ctx, name)
		if err != nil {
			return err
		}
		if ok && current != version {
			verb = "upgrade"
		}
	}

	args := []string{verb, name, "-y", "--no-progress"}
	if version != "" {
		args = append(args, "--version="+version)
	}
	if verb == "upgrade" {
		args = append(args, "--allow-downgrade")
	}

	if _, err := command.Check(ctx, m.runner, m.binary, args...); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("choco not found in PATH; install Chocolatey first")
		}
		return err
	}
	return nil
}

func validateName(name string) error {
	if !packageName.MatchString(name) {
		return fmt.Errorf("invalid package name %q", name)
	}
	return nil
}
