// Package command runs external programs for the host adapters.
package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/hostprep/internal/logger"
	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

// Runner implements ports.CommandRunner on os/exec. When Stdout or Stderr is
// set, output is streamed there while it is also collected.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Dir    string
	Env    []string
	Logger *logger.Logger
}

var _ ports.CommandRunner = (*Runner)(nil)

// NewRunner returns a runner that collects output without streaming it.
func NewRunner(log *logger.Logger) *Runner {
	return &Runner{Logger: log}
}

// Run executes name with args. A non-zero exit is returned in the result
// with a nil error.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (ports.CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	r.Logger.Debug("exec " + strings.Join(append([]string{name}, args...), " "))

	res, err := runStreaming(cmd)
	result := ports.CommandResult{Stdout: res.stdout, Stderr: res.stderr}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case ctx.Err() != nil:
		result.ExitCode = -1
		return result, ctx.Err()
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	default:
		result.ExitCode = -1
		return result, err
	}
}

type output struct {
	stdout string
	stderr string
}

// runStreaming tees the command's output through any writers already set on
// cmd while collecting it for inspection.
func runStreaming(cmd *exec.Cmd) (output, error) {
	var stdoutBuf, stderrBuf bytes.Buffer

	if cmd.Stdout != nil {
		cmd.Stdout = io.MultiWriter(cmd.Stdout, &stdoutBuf)
	} else {
		cmd.Stdout = &stdoutBuf
	}
	if cmd.Stderr != nil {
		cmd.Stderr = io.MultiWriter(cmd.Stderr, &stderrBuf)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()

	return output{
		stdout: strings.TrimSpace(stdoutBuf.String()),
		stderr: strings.TrimSpace(stderrBuf.String()),
	}, err
}

// PowerShell runs script with ErrorActionPreference=Stop so script errors
// surface as a non-zero exit code.
func PowerShell(ctx context.Context, runner ports.CommandRunner, script string) (ports.CommandResult, error) {
	wrapped := "$ErrorActionPreference='Stop'; " + script
	return runner.Run(ctx, "powershell.exe", "-NoProfile", "-NonInteractive", "-Command", wrapped)
}

// ExitError describes a command that ran but exited non-zero.
type ExitError struct {
	Command string
	Result  ports.CommandResult
}

func (e *ExitError) Error() string {
	msg := e.Command + " exited with code " + strconv.Itoa(e.Result.ExitCode)
	if out := e.Result.Output(); out != "" {
		msg += ": " + out
	}
	return msg
}

// Check runs the command and converts a non-zero exit into *ExitError.
func Check(ctx context.Context, runner ports.CommandRunner, name string, args ...string) (ports.CommandResult, error) {
	res, err := runner.Run(ctx, name, args...)
	if err != nil {
		return res, err
	}
	if !res.Success() {
		return res, &ExitError{Command: strings.Join(append([]string{name}, args...), " "), Result: res}
	}
	return res, nil
}
