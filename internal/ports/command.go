// Package ports defines the host capabilities that reconciliation plans are
// built on. Adapters implement them against the live system; tests use the
// in-memory fakes in internal/testutil.
package ports

import (
	"context"
	"strings"
)

// CommandResult represents the result of executing a command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the command exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// Output returns stderr if present, otherwise stdout.
func (r CommandResult) Output() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// CommandRunner executes external commands. A non-zero exit code is reported
// through CommandResult, not as an error; errors mean the command could not
// be started or was cancelled.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)
}
