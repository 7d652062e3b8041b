package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Snapshot is an observation of system state keyed by attribute name.
type Snapshot map[string]string

// Get returns the value recorded for key, or "" when absent.
func (s Snapshot) Get(key string) string {
	if s == nil {
		return ""
	}
	return s[key]
}

// Clone returns an independent copy so outcomes never alias capability-owned maps.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// String renders the snapshot as sorted key=value lines.
func (s Snapshot) String() string {
	if len(s) == 0 {
		return ""
	}
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s=%s", k, s[k]))
	}
	return strings.Join(lines, "\n")
}

// Severity decides how a step failure affects the run.
type Severity string

const (
	// SeverityRequired failures can halt the run and always degrade the report.
	SeverityRequired Severity = "required"
	// SeverityAdvisory failures are reported but never halt.
	SeverityAdvisory Severity = "advisory"
)

// Valid reports whether the severity is one of the known values.
func (s Severity) Valid() bool {
	return s == SeverityRequired || s == SeverityAdvisory
}

// ProbeFunc observes the current state. It must not mutate the system.
type ProbeFunc func(ctx context.Context) (Snapshot, error)

// ApplyFunc attempts to move the system towards the desired state.
type ApplyFunc func(ctx context.Context, before Snapshot) error

// Step is one declared unit of desired configuration. Steps are values and
// are never modified by the engine.
type Step struct {
	ID          string
	Description string
	Severity    Severity

	// Probe captures the observed-before state.
	Probe ProbeFunc
	// Satisfied is the desired-state predicate evaluated against probe and verify snapshots.
	Satisfied func(Snapshot) bool
	// Apply is optional; a nil Apply means the step can only be diagnosed.
	Apply ApplyFunc
	// Verify is optional; when nil the engine re-runs Probe.
	Verify ProbeFunc

	// Guard, when set, is acquired before this step's Apply and released at run end.
	Guard *Guard

	// Recommendation is surfaced to operators when the step does not converge.
	Recommendation string
}

// Guard is a scoped acquisition around mutating steps, such as relaxing a
// security control for the duration of an install. An acquired guard is
// always released when the run ends, including halted and interrupted runs.
type Guard struct {
	ID          string
	Description string
	Acquire     func(ctx context.Context) error
	Release     func(ctx context.Context) error
}
