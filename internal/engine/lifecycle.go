package engine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Per-step lifecycle:
//
//	probe -> skipped-already-satisfied
//	      -> probe-failed
//	      -> apply -> apply-failed
//	               -> would-apply (dry run)
//	               -> verify -> verify-failed
//	                         -> applied
//
// Every step walks the machine exactly once; there are no retries.
const (
	stateProbe  = "probe"
	stateApply  = "apply"
	stateVerify = "verify"

	stateSkipped      = "skipped-already-satisfied"
	stateApplied      = "applied"
	stateApplyFailed  = "apply-failed"
	stateVerifyFailed = "verify-failed"
	stateProbeFailed  = "probe-failed"
	stateWouldApply   = "would-apply"
)

const (
	eventSatisfied   statekit.EventType = "SATISFIED"
	eventUnsatisfied statekit.EventType = "UNSATISFIED"
	eventProbeFailed statekit.EventType = "PROBE_FAILED"
	eventDryRun      statekit.EventType = "DRY_RUN"
	eventApplied     statekit.EventType = "APPLIED"
	eventApplyFailed statekit.EventType = "APPLY_FAILED"
	eventConverged   statekit.EventType = "CONVERGED"
	eventDiverged    statekit.EventType = "DIVERGED"
)

type lifecycleContext struct {
	StepID string
}

type lifecycle struct {
	interp *statekit.Interpreter[lifecycleContext]
}

func newLifecycle(stepID string) (*lifecycle, error) {
	machine, err := statekit.NewMachine[lifecycleContext]("step-lifecycle").
		WithInitial(stateProbe).
		WithContext(lifecycleContext{StepID: stepID}).
		State(stateProbe).
		On(eventSatisfied).Target(stateSkipped).
		On(eventUnsatisfied).Target(stateApply).
		On(eventProbeFailed).Target(stateProbeFailed).Done().
		State(stateApply).
		On(eventApplied).Target(stateVerify).
		On(eventApplyFailed).Target(stateApplyFailed).
		On(eventDryRun).Target(stateWouldApply).Done().
		State(stateVerify).
		On(eventConverged).Target(stateApplied).
		On(eventDiverged).Target(stateVerifyFailed).Done().
		State(stateSkipped).Done().
		State(stateProbeFailed).Done().
		State(stateApplyFailed).Done().
		State(stateWouldApply).Done().
		State(stateVerifyFailed).Done().
		State(stateApplied).Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("build step lifecycle: %w", err)
	}

	interp := statekit.NewInterpreter(machine)
	interp.Start()
	return &lifecycle{interp: interp}, nil
}

func (l *lifecycle) fire(event statekit.EventType) {
	l.interp.Send(statekit.Event{Type: event})
}

// finish stops the interpreter and returns the terminal action. A machine
// left in a non-terminal state indicates an engine bug.
func (l *lifecycle) finish() (Action, error) {
	current := string(l.interp.State().Value)
	l.interp.Stop()

	switch Action(current) {
	case ActionSkipped, ActionApplied, ActionApplyFailed, ActionVerifyFailed, ActionProbeFailed, ActionWouldApply:
		return Action(current), nil
	default:
		return "", fmt.Errorf("step lifecycle stopped in non-terminal state %q", current)
	}
}
