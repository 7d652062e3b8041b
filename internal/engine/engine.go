package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/hostprep/internal/logger"
	hosterrors "github.com/alexisbeaulieu97/hostprep/pkg/errors"
)

// defaultApplyGrace bounds how long guard release waits for applies that were
// abandoned on timeout but are still running.
const defaultApplyGrace = 30 * time.Second

// defaultReleaseTimeout bounds each guard release when no step timeout is configured.
const defaultReleaseTimeout = 2 * time.Minute

// RunOptions is the explicit per-run configuration. The engine has no
// process-wide defaults; everything a run needs is passed here.
type RunOptions struct {
	Name                  string
	HaltOnRequiredFailure bool
	// StepTimeout bounds every individual probe, apply, verify and guard call.
	// Zero disables the deadline. A call past its deadline is abandoned, not
	// killed: an apply that ignores its context keeps running, and guards are
	// released once it returns or a grace period expires, whichever is first.
	StepTimeout time.Duration
	// DryRun probes every step but records would-apply instead of mutating.
	DryRun bool

	OnStepStart func(Step)
	OnOutcome   func(StepOutcome)
}

// Engine executes ordered steps against a live system. It holds no state
// across runs; callers must not run two reconciliations over the same
// desired state concurrently.
type Engine struct {
	logger *logger.Logger
	now    func() time.Time
	grace  time.Duration
}

// New creates an engine that logs through log. A nil logger is allowed.
func New(log *logger.Logger) *Engine {
	return &Engine{
		logger: log,
		now:    time.Now,
		grace:  defaultApplyGrace,
	}
}

// ValidateSteps checks a step list before any capability is invoked.
func ValidateSteps(steps []Step) error {
	seen := make(map[string]int, len(steps))
	guards := make(map[string]*Guard)

	for i, step := range steps {
		field := func(name string) string { return fmt.Sprintf("steps[%d].%s", i, name) }

		if strings.TrimSpace(step.ID) == "" {
			return hosterrors.NewConfigurationError(field("id"), "step id is required", nil)
		}
		if first, dup := seen[step.ID]; dup {
			return hosterrors.NewConfigurationError(field("id"), fmt.Sprintf("duplicate step id %q (first declared at steps[%d])", step.ID, first), nil)
		}
		seen[step.ID] = i

		if !step.Severity.Valid() {
			return hosterrors.NewConfigurationError(field("severity"), fmt.Sprintf("unknown severity %q", step.Severity), nil)
		}
		if step.Probe == nil {
			return hosterrors.NewConfigurationError(field("probe"), "probe is required", nil)
		}
		if step.Satisfied == nil {
			return hosterrors.NewConfigurationError(field("satisfied"), "desired-state predicate is required", nil)
		}

		if g := step.Guard; g != nil {
			if strings.TrimSpace(g.ID) == "" || g.Acquire == nil || g.Release == nil {
				return hosterrors.NewConfigurationError(field("guard"), "guard requires an id, acquire and release", nil)
			}
			if existing, ok := guards[g.ID]; ok && existing != g {
				return hosterrors.NewConfigurationError(field("guard"), fmt.Sprintf("guard id %q is declared by two different guards", g.ID), nil)
			}
			guards[g.ID] = g
		}
	}

	return nil
}

// Run reconciles steps in declaration order and returns the finalized report.
// The only error it returns is a ConfigurationError from pre-flight
// validation, or an internal fault; capability failures are recorded in the
// report instead.
func (e *Engine) Run(ctx context.Context, steps []Step, opts RunOptions) (*RunReport, error) {
	if err := ValidateSteps(steps); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	log := e.logger.WithFields(map[string]any{"run": opts.Name})
	report := newRunReport(opts.Name, e.now(), opts.DryRun)
	guards := newGuardSet(log, e.grace)

	log.Debug(fmt.Sprintf("reconciling %d steps", len(steps)))

	var runErr error
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			report.Interrupted = err
			log.Warn("run interrupted before all steps were attempted")
			break
		}

		if opts.OnStepStart != nil {
			opts.OnStepStart(step)
		}

		outcome, err := e.executeStep(ctx, step, opts, guards)
		if err != nil {
			runErr = err
			break
		}

		report.append(outcome)
		e.logOutcome(log, outcome)
		if opts.OnOutcome != nil {
			opts.OnOutcome(outcome)
		}

		if haltsRun(step, outcome, opts) {
			report.Halted = true
			log.Warn(fmt.Sprintf("halting after required step %s failed", step.ID))
			break
		}
	}

	// A cancellation that cut short the final step is still an interrupt.
	if report.Interrupted == nil && ctx.Err() != nil {
		if n := len(report.Outcomes); n > 0 && !report.Outcomes[n-1].Action.Converged() {
			report.Interrupted = ctx.Err()
			log.Warn("run interrupted during its last attempted step")
		}
	}

	releaseCtx := context.WithoutCancel(ctx)
	report.Guards = guards.releaseAll(releaseCtx, releaseTimeout(opts))
	report.finalize(e.now())

	if runErr != nil {
		return report, runErr
	}

	log.Info(fmt.Sprintf("run finished with status %s", report.Status))
	return report, nil
}

func haltsRun(step Step, outcome StepOutcome, opts RunOptions) bool {
	if !opts.HaltOnRequiredFailure || step.Severity != SeverityRequired {
		return false
	}
	return outcome.Action == ActionApplyFailed || outcome.Action == ActionProbeFailed
}

func releaseTimeout(opts RunOptions) time.Duration {
	if opts.StepTimeout > 0 {
		return opts.StepTimeout
	}
	return defaultReleaseTimeout
}

func (e *Engine) executeStep(ctx context.Context, step Step, opts RunOptions, guards *guardSet) (StepOutcome, error) {
	start := e.now()
	outcome := StepOutcome{
		StepID:         step.ID,
		Description:    step.Description,
		Severity:       step.Severity,
		Recommendation: step.Recommendation,
		Timestamp:      start,
	}

	lc, err := newLifecycle(step.ID)
	if err != nil {
		return outcome, err
	}

	e.logger.Debug(fmt.Sprintf("probing step %s", step.ID))

	before, err := invoke(ctx, opts.StepTimeout, step.Probe)
	outcome.Before = before.Clone()

	switch {
	case err != nil:
		lc.fire(eventProbeFailed)
		outcome.Err = hosterrors.NewProbeError(step.ID, err)
	case step.Satisfied(before):
		lc.fire(eventSatisfied)
		outcome.After = before.Clone()
	default:
		lc.fire(eventUnsatisfied)
		outcome.After, outcome.Err = e.converge(ctx, lc, step, before, opts, guards)
	}

	action, err := lc.finish()
	if err != nil {
		return outcome, err
	}
	outcome.Action = action
	outcome.Duration = e.now().Sub(start)
	return outcome, nil
}

// converge drives the apply and verify half of the lifecycle.
func (e *Engine) converge(ctx context.Context, lc *lifecycle, step Step, before Snapshot, opts RunOptions, guards *guardSet) (Snapshot, error) {
	if opts.DryRun {
		lc.fire(eventDryRun)
		return nil, nil
	}

	if err := e.apply(ctx, step, before, opts, guards); err != nil {
		lc.fire(eventApplyFailed)
		return nil, hosterrors.NewApplyError(step.ID, err)
	}
	lc.fire(eventApplied)

	verify := step.Verify
	if verify == nil {
		verify = step.Probe
	}

	after, err := invoke(ctx, opts.StepTimeout, verify)
	if err == nil && !step.Satisfied(after) {
		err = fmt.Errorf("%w: observed %s", hosterrors.ErrNotConverged, describe(after))
	}
	if err != nil {
		lc.fire(eventDiverged)
		return after.Clone(), hosterrors.NewVerifyError(step.ID, err)
	}

	lc.fire(eventConverged)
	return after.Clone(), nil
}

func (e *Engine) apply(ctx context.Context, step Step, before Snapshot, opts RunOptions, guards *guardSet) error {
	if step.Apply == nil {
		return hosterrors.ErrNoRemedy
	}

	if step.Guard != nil {
		if err := guards.acquire(ctx, step.Guard, opts.StepTimeout); err != nil {
			return fmt.Errorf("acquire guard %s: %w", step.Guard.ID, err)
		}
	}

	_, err := invoke(ctx, opts.StepTimeout, guards.track(func(callCtx context.Context) error {
		return step.Apply(callCtx, before.Clone())
	}))
	return err
}

func (e *Engine) logOutcome(log *logger.Logger, outcome StepOutcome) {
	entry := log.WithFields(map[string]any{
		"step":     outcome.StepID,
		"action":   string(outcome.Action),
		"severity": string(outcome.Severity),
		"duration": outcome.Duration.String(),
	})
	if outcome.Err != nil {
		entry.WarnErr(outcome.Err, "step did not converge")
		return
	}
	entry.Info("step reconciled")
}

func describe(s Snapshot) string {
	if len(s) == 0 {
		return "empty state"
	}
	return strings.ReplaceAll(s.String(), "\n", ", ")
}

// invoke runs a capability call under an optional deadline. A call that
// ignores its context is abandoned once the deadline passes so a hung system
// call cannot stall the run; the caller classifies the returned error.
func invoke[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := fn(callCtx)
		done <- result{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-callCtx.Done():
		var zero T
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("timed out after %s: %w", timeout, callCtx.Err())
		}
		return zero, callCtx.Err()
	}
}
