// Package testutil provides in-memory fakes of the host capability ports.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

// Call records one command invocation.
type Call struct {
	Name string
	Args []string
}

// String renders the call as a shell-like command line.
func (c Call) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

type scripted struct {
	result ports.CommandResult
	err    error
}

// Runner is a scripted ports.CommandRunner. Responses are keyed by the full
// command line; unscripted commands succeed with empty output.
type Runner struct {
	mu        sync.Mutex
	responses map[string][]scripted
	calls     []Call
}

// NewRunner returns an empty scripted runner.
func NewRunner() *Runner {
	return &Runner{responses: make(map[string][]scripted)}
}

// On queues a response for the command line. Multiple responses for the same
// line are returned in order; the last one repeats.
func (r *Runner) On(commandLine string, result ports.CommandResult, err error) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[commandLine] = append(r.responses[commandLine], scripted{result: result, err: err})
	return r
}

// Stdout is shorthand for a successful command printing out.
func (r *Runner) Stdout(commandLine, out string) *Runner {
	return r.On(commandLine, ports.CommandResult{Stdout: out}, nil)
}

// Run implements ports.CommandRunner.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (ports.CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.CommandResult{ExitCode: -1}, err
	}

	call := Call{Name: name, Args: append([]string(nil), args...)}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)

	queue := r.responses[call.String()]
	if len(queue) == 0 {
		return ports.CommandResult{}, nil
	}
	next := queue[0]
	if len(queue) > 1 {
		r.responses[call.String()] = queue[1:]
	}
	return next.result, next.err
}

// Calls returns every recorded invocation in order.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CommandLines returns every recorded invocation rendered as a string.
func (r *Runner) CommandLines() []string {
	calls := r.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.String())
	}
	return out
}

// Called reports whether the command line was invoked at least once.
func (r *Runner) Called(commandLine string) bool {
	for _, line := range r.CommandLines() {
		if line == commandLine {
			return true
		}
	}
	return false
}
