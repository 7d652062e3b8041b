package components

import (
	"github.com/alexisbeaulieu97/hostprep/internal/engine"
)

// StepEntry is one row of the step list.
type StepEntry struct {
	ID          string
	Description string
	Running     bool
	// Outcome is nil until the step finishes.
	Outcome *engine.StepOutcome
}

// Pending reports whether the step has neither started nor finished.
func (e StepEntry) Pending() bool {
	return !e.Running && e.Outcome == nil
}

// StepList orders step rows for rendering.
type StepList struct {
	entries []StepEntry
}

// NewStepList builds rows in order. running names the step currently
// reconciling, if any.
func NewStepList(order []string, descriptions map[string]string, outcomes map[string]engine.StepOutcome, running string) StepList {
	entries := make([]StepEntry, 0, len(order))
	for _, id := range order {
		entry := StepEntry{ID: id, Description: descriptions[id], Running: id == running}
		if outcome, ok := outcomes[id]; ok {
			entry.Outcome = &outcome
			entry.Running = false
		}
		entries = append(entries, entry)
	}
	return StepList{entries: entries}
}

// Entries returns a copy of the ordered rows.
func (s StepList) Entries() []StepEntry {
	clone := make([]StepEntry, len(s.entries))
	copy(clone, s.entries)
	return clone
}
