package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alexisbeaulieu97/hostprep/internal/logger"
)

// guardSet tracks guards acquired during a single run.
type guardSet struct {
	logger   *logger.Logger
	acquired []*Guard
	failed   map[string]error
	outcomes []GuardOutcome
	// grace bounds how long release waits for applies abandoned on timeout.
	grace   time.Duration
	pending sync.WaitGroup
}

func newGuardSet(log *logger.Logger, grace time.Duration) *guardSet {
	return &guardSet{
		logger: log,
		failed: make(map[string]error),
		grace:  grace,
	}
}

// track counts fn as in flight until it returns, even if its caller has
// already given up on it.
func (g *guardSet) track(fn func(context.Context) error) func(context.Context) (struct{}, error) {
	g.pending.Add(1)
	return func(ctx context.Context) (struct{}, error) {
		defer g.pending.Done()
		return struct{}{}, fn(ctx)
	}
}

// settle waits up to the grace period for tracked calls to return.
func (g *guardSet) settle() bool {
	done := make(chan struct{})
	go func() {
		g.pending.Wait()
		close(done)
	}()

	timer := time.NewTimer(g.grace)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// acquire is a no-op for a guard already held. A guard whose acquisition
// failed is not retried within the same run.
func (g *guardSet) acquire(ctx context.Context, guard *Guard, timeout time.Duration) error {
	for _, held := range g.acquired {
		if held.ID == guard.ID {
			return nil
		}
	}
	if err, ok := g.failed[guard.ID]; ok {
		return err
	}

	g.logger.Info(fmt.Sprintf("acquiring guard %s", guard.ID))
	_, err := invoke(ctx, timeout, func(callCtx context.Context) (struct{}, error) {
		return struct{}{}, guard.Acquire(callCtx)
	})
	if err != nil {
		g.failed[guard.ID] = err
		g.outcomes = append(g.outcomes, GuardOutcome{ID: guard.ID, Err: err})
		g.logger.Error(err, fmt.Sprintf("guard %s could not be acquired", guard.ID))
		return err
	}

	g.acquired = append(g.acquired, guard)
	return nil
}

// releaseAll releases held guards in reverse acquisition order and returns
// every guard outcome of the run. Applies that outlived their deadline get
// the grace period to finish first.
func (g *guardSet) releaseAll(ctx context.Context, timeout time.Duration) []GuardOutcome {
	if len(g.acquired) > 0 && !g.settle() {
		g.logger.Warn(fmt.Sprintf("releasing guards while an abandoned apply is still running after %s", g.grace))
	}
	for i := len(g.acquired) - 1; i >= 0; i-- {
		guard := g.acquired[i]
		_, err := invoke(ctx, timeout, func(callCtx context.Context) (struct{}, error) {
			return struct{}{}, guard.Release(callCtx)
		})

		outcome := GuardOutcome{ID: guard.ID, Acquired: true, Released: err == nil, Err: err}
		if err != nil {
			g.logger.Error(err, fmt.Sprintf("guard %s could not be released", guard.ID))
		} else {
			g.logger.Info(fmt.Sprintf("released guard %s", guard.ID))
		}
		g.outcomes = append(g.outcomes, outcome)
	}
	g.acquired = nil

	if len(g.outcomes) == 0 {
		return nil
	}
	out := make([]GuardOutcome, len(g.outcomes))
	copy(out, g.outcomes)
	return out
}
