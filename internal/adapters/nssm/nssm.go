// Package nssm registers programs as Windows services with the Non-Sucking
// Service Manager.
package nssm

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/hostprep/internal/adapters/command"
	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

// Wrapper implements ports.ServiceWrapper on the nssm CLI.
type Wrapper struct {
	runner ports.CommandRunner
	binary string
}

var _ ports.ServiceWrapper = (*Wrapper)(nil)

// New returns a wrapper calling binary, or "nssm" from PATH when empty.
func New(runner ports.CommandRunner, binary string) *Wrapper {
	if binary == "" {
		binary = "nssm"
	}
	return &Wrapper{runner: runner, binary: binary}
}

// Inspect reads the registered configuration of svc.Name. A service nssm
// cannot open is reported as not installed.
func (w *Wrapper) Inspect(ctx context.Context, svc ports.WrappedService) (ports.WrappedState, error) {
	var state ports.WrappedState

	res, err := w.runner.Run(ctx, w.binary, "status", svc.Name)
	if err != nil {
		return state, fmt.Errorf("nssm status %s: %w", svc.Name, err)
	}
	if !res.Success() {
		return state, nil
	}
	state.Installed = true
	state.Status = clean(res.Stdout)
	state.Running = state.Status == "SERVICE_RUNNING"

	fields := []struct {
		param string
		dst   *string
	}{
		{"Application", &state.Executable},
		{"AppParameters", &state.Arguments},
		{"AppDirectory", &state.WorkDir},
		{"AppStdout", &state.StdoutLog},
		{"AppStderr", &state.StderrLog},
	}
	for _, f := range fields {
		res, err := command.Check(ctx, w.runner, w.binary, "get", svc.Name, f.param)
		if err != nil {
			return state, fmt.Errorf("read %s of %s: %w", f.param, svc.Name, err)
		}
		*f.dst = clean(res.Stdout)
	}

	return state, nil
}

// Install (re)registers svc. Any previous registration under the same name is
// removed first, then the service is configured to start automatically with
// its output redirected to the configured logs. AppDirectory is always set so
// Inspect reads back exactly svc.Directory().
func (w *Wrapper) Install(ctx context.Context, svc ports.WrappedService) error {
	// Both are expected to fail when the service does not exist yet.
	if _, err := w.runner.Run(ctx, w.binary, "stop", svc.Name); err != nil {
		return fmt.Errorf("nssm stop %s: %w", svc.Name, err)
	}
	if _, err := w.runner.Run(ctx, w.binary, "remove", svc.Name, "confirm"); err != nil {
		return fmt.Errorf("nssm remove %s: %w", svc.Name, err)
	}

	if _, err := command.Check(ctx, w.runner, w.binary, "install", svc.Name, svc.Executable); err != nil {
		return err
	}

	settings := [][2]string{
		{"AppParameters", svc.Arguments},
		{"AppDirectory", svc.Directory()},
		{"Start", "SERVICE_AUTO_START"},
		{"AppStdout", svc.StdoutLog},
		{"AppStderr", svc.StderrLog},
	}
	for _, s := range settings {
		if s[1] == "" {
			continue
		}
		if _, err := command.Check(ctx, w.runner, w.binary, "set", svc.Name, s[0], s[1]); err != nil {
			return err
		}
	}
	return nil
}

// Start starts name. Starting a running service is not an error.
func (w *Wrapper) Start(ctx context.Context, name string) error {
	res, err := w.runner.Run(ctx, w.binary, "start", name)
	if err != nil {
		return fmt.Errorf("nssm start %s: %w", name, err)
	}
	if res.Success() || strings.Contains(clean(res.Output()), "already running") {
		return nil
	}
	return &command.ExitError{Command: "nssm start " + name, Result: res}
}

// clean strips the NUL bytes nssm leaves in its UTF-16 console output.
func clean(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}
