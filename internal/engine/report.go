package engine

import (
	"time"

	"github.com/google/uuid"

	hosterrors "github.com/alexisbeaulieu97/hostprep/pkg/errors"
)

// Action is the terminal state of a single step execution.
type Action string

const (
	// ActionSkipped means the probe found the desired state already in place.
	ActionSkipped Action = stateSkipped
	// ActionApplied means apply and verify both succeeded.
	ActionApplied Action = stateApplied
	// ActionApplyFailed means apply errored, or the step has no remedy.
	ActionApplyFailed Action = stateApplyFailed
	// ActionVerifyFailed means apply succeeded but the state did not converge.
	ActionVerifyFailed Action = stateVerifyFailed
	// ActionProbeFailed means the current state could not be observed.
	ActionProbeFailed Action = stateProbeFailed
	// ActionWouldApply is recorded in dry-run mode instead of calling apply.
	ActionWouldApply Action = stateWouldApply
)

// Converged reports whether the action leaves the step in its desired state.
func (a Action) Converged() bool {
	return a == ActionSkipped || a == ActionApplied
}

// Failed reports whether the action represents a failure.
func (a Action) Failed() bool {
	switch a {
	case ActionApplyFailed, ActionVerifyFailed, ActionProbeFailed:
		return true
	default:
		return false
	}
}

// Status summarises a finished run.
type Status string

const (
	// StatusSuccess means every step was skipped or applied.
	StatusSuccess Status = "success"
	// StatusPartial means the run completed with tolerated failures.
	StatusPartial Status = "partial"
	// StatusFailed means a required step halted the run, a required probe failed, or the run was interrupted.
	StatusFailed Status = "failed"
)

// StepOutcome is the immutable record of one step execution.
type StepOutcome struct {
	StepID         string
	Description    string
	Severity       Severity
	Before         Snapshot
	Action         Action
	Err            error
	After          Snapshot
	Recommendation string
	Duration       time.Duration
	Timestamp      time.Time
}

// MarshalYAML renders the outcome with its error flattened to text.
func (o StepOutcome) MarshalYAML() (any, error) {
	type view struct {
		StepID    string   `yaml:"step"`
		Severity  Severity `yaml:"severity"`
		Action    Action   `yaml:"action"`
		ErrorKind string   `yaml:"error_kind,omitempty"`
		Error     string   `yaml:"error,omitempty"`
		Before    Snapshot `yaml:"before,omitempty"`
		After     Snapshot `yaml:"after,omitempty"`
		Duration  string   `yaml:"duration"`
	}
	v := view{
		StepID:   o.StepID,
		Severity: o.Severity,
		Action:   o.Action,
		Before:   o.Before,
		After:    o.After,
		Duration: o.Duration.String(),
	}
	if o.Err != nil {
		v.ErrorKind = hosterrors.Kind(o.Err)
		v.Error = o.Err.Error()
	}
	return v, nil
}

// GuardOutcome records what happened to a guard during a run.
type GuardOutcome struct {
	ID       string
	Acquired bool
	Released bool
	Err      error
}

// RunReport is the ordered outcome log for one engine run. The caller owns it.
type RunReport struct {
	ID          string
	Name        string
	StartedAt   time.Time
	FinishedAt  time.Time
	Outcomes    []StepOutcome
	Guards      []GuardOutcome
	Status      Status
	Halted      bool
	Interrupted error
	DryRun      bool
}

func newRunReport(name string, started time.Time, dryRun bool) *RunReport {
	return &RunReport{
		ID:        uuid.New().String(),
		Name:      name,
		StartedAt: started,
		Outcomes:  make([]StepOutcome, 0),
		DryRun:    dryRun,
	}
}

func (r *RunReport) append(outcome StepOutcome) {
	r.Outcomes = append(r.Outcomes, outcome)
}

func (r *RunReport) finalize(finished time.Time) {
	r.FinishedAt = finished
	r.Status = r.computeStatus()
}

func (r *RunReport) computeStatus() Status {
	if r.Halted || r.Interrupted != nil {
		return StatusFailed
	}

	status := StatusSuccess
	for _, outcome := range r.Outcomes {
		if outcome.Action == ActionProbeFailed && outcome.Severity == SeverityRequired {
			return StatusFailed
		}
		if !outcome.Action.Converged() {
			status = StatusPartial
		}
	}

	for _, guard := range r.Guards {
		if guard.Acquired && !guard.Released {
			status = StatusPartial
		}
	}

	return status
}

// Duration returns the wall-clock time the run took.
func (r *RunReport) Duration() time.Duration {
	if r == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Counts tallies outcomes by action.
func (r *RunReport) Counts() map[Action]int {
	counts := make(map[Action]int)
	if r == nil {
		return counts
	}
	for _, outcome := range r.Outcomes {
		counts[outcome.Action]++
	}
	return counts
}

// Outcome returns the recorded outcome for a step ID.
func (r *RunReport) Outcome(stepID string) (StepOutcome, bool) {
	if r == nil {
		return StepOutcome{}, false
	}
	for _, outcome := range r.Outcomes {
		if outcome.StepID == stepID {
			return outcome, true
		}
	}
	return StepOutcome{}, false
}

// Recommendations lists the operator guidance of every step that did not
// converge, in step order and without duplicates.
func (r *RunReport) Recommendations() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, outcome := range r.Outcomes {
		if outcome.Action.Converged() || outcome.Recommendation == "" {
			continue
		}
		if _, dup := seen[outcome.Recommendation]; dup {
			continue
		}
		seen[outcome.Recommendation] = struct{}{}
		out = append(out, outcome.Recommendation)
	}
	return out
}

// MarshalYAML renders the report for machine consumption.
func (r *RunReport) MarshalYAML() (any, error) {
	type guardView struct {
		ID       string `yaml:"id"`
		Acquired bool   `yaml:"acquired"`
		Released bool   `yaml:"released"`
		Error    string `yaml:"error,omitempty"`
	}
	type view struct {
		ID              string         `yaml:"id"`
		Name            string         `yaml:"name,omitempty"`
		Status          Status         `yaml:"status"`
		DryRun          bool           `yaml:"dry_run,omitempty"`
		Halted          bool           `yaml:"halted,omitempty"`
		Interrupted     string         `yaml:"interrupted,omitempty"`
		StartedAt       time.Time      `yaml:"started_at"`
		Duration        string         `yaml:"duration"`
		Outcomes        []StepOutcome  `yaml:"outcomes"`
		Guards          []guardView    `yaml:"guards,omitempty"`
		Recommendations []string       `yaml:"recommendations,omitempty"`
		Counts          map[Action]int `yaml:"counts"`
	}

	v := view{
		ID:              r.ID,
		Name:            r.Name,
		Status:          r.Status,
		DryRun:          r.DryRun,
		Halted:          r.Halted,
		StartedAt:       r.StartedAt,
		Duration:        r.Duration().String(),
		Outcomes:        r.Outcomes,
		Recommendations: r.Recommendations(),
		Counts:          r.Counts(),
	}
	if r.Interrupted != nil {
		v.Interrupted = r.Interrupted.Error()
	}
	for _, g := range r.Guards {
		gv := guardView{ID: g.ID, Acquired: g.Acquired, Released: g.Released}
		if g.Err != nil {
			gv.Error = g.Err.Error()
		}
		v.Guards = append(v.Guards, gv)
	}
	return v, nil
}
