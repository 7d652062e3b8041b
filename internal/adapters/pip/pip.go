// Package pip installs Python requirements and records what was installed
// so unchanged requirements are not reinstalled.
package pip

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexisbeaulieu97/hostprep/internal/adapters/command"
	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

// StampFile is written next to the requirements file after a successful
// install and holds the manifest digest that was installed.
const StampFile = ".hostprep-deps"

// Installer implements ports.DependencyInstaller.
type Installer struct {
	runner ports.CommandRunner
}

var _ ports.DependencyInstaller = (*Installer)(nil)

// New returns an installer running pip through runner.
func New(runner ports.CommandRunner) *Installer {
	return &Installer{runner: runner}
}

// Fingerprint returns the sha256 of the requirements file and the digest
// recorded by the last successful install, which is empty when none exists.
func (i *Installer) Fingerprint(_ context.Context, spec ports.DependencySpec) (string, string, error) {
	current, err := digest(spec.Requirements)
	if err != nil {
		return "", "", err
	}

	stamp, err := os.ReadFile(stampPath(spec))
	if errors.Is(err, os.ErrNotExist) {
		return current, "", nil
	}
	if err != nil {
		return current, "", fmt.Errorf("read install stamp: %w", err)
	}
	return current, strings.TrimSpace(string(stamp)), nil
}

// Install runs `<interpreter> -m pip install -r <requirements>` and stamps
// the manifest digest on success.
func (i *Installer) Install(ctx context.Context, spec ports.DependencySpec) error {
	sum, err := digest(spec.Requirements)
	if err != nil {
		return err
	}

	interpreter := spec.Interpreter
	if interpreter == "" {
		interpreter = "python"
	}
	if _, err := command.Check(ctx, i.runner, interpreter, "-m", "pip", "install", "--disable-pip-version-check", "-r", spec.Requirements); err != nil {
		return err
	}

	if err := os.WriteFile(stampPath(spec), []byte(sum+"\n"), 0o644); err != nil {
		return fmt.Errorf("write install stamp: %w", err)
	}
	return nil
}

func stampPath(spec ports.DependencySpec) string {
	return filepath.Join(filepath.Dir(spec.Requirements), StampFile)
}

func digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open requirements: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash requirements: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
