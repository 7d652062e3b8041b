package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/hostprep/internal/engine"
)

// StepStartMsg indicates a step has started reconciling.
type StepStartMsg struct {
	ID string
}

// StepOutcomeMsg carries the outcome of a finished step.
type StepOutcomeMsg struct {
	Outcome engine.StepOutcome
}

// RunFinishedMsg delivers the finalized report and ends the program.
type RunFinishedMsg struct {
	Report *engine.RunReport
}

// Model is the Bubbletea state for a reconciliation run.
type Model struct {
	title        string
	order        []string
	descriptions map[string]string
	outcomes     map[string]engine.StepOutcome
	running      string
	report       *engine.RunReport
	verbose      bool
	cancel       context.CancelFunc
	cancelled    bool
	finished     bool
}

// NewModel tracks steps in declaration order. Verbose models render the
// before/after difference of every step that changed state.
func NewModel(title string, steps []engine.Step, verbose bool) Model {
	m := Model{
		title:        title,
		order:        make([]string, 0, len(steps)),
		descriptions: make(map[string]string, len(steps)),
		outcomes:     make(map[string]engine.StepOutcome, len(steps)),
		verbose:      verbose,
	}
	for _, step := range steps {
		if _, dup := m.descriptions[step.ID]; dup {
			continue
		}
		m.order = append(m.order, step.ID)
		m.descriptions[step.ID] = step.Description
	}
	return m
}

// WithCancel installs the function called when the user presses Ctrl+C.
func (m Model) WithCancel(cancel context.CancelFunc) Model {
	m.cancel = cancel
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// TotalSteps returns the number of declared steps.
func (m Model) TotalSteps() int {
	return len(m.order)
}

// CompletedSteps returns how many steps have an outcome.
func (m Model) CompletedSteps() int {
	return len(m.outcomes)
}

// IsFinished reports whether the run report has been received.
func (m Model) IsFinished() bool {
	return m.finished
}

// Report returns the final report, or nil while the run is in progress.
func (m Model) Report() *engine.RunReport {
	return m.report
}

func (m Model) failedSteps() int {
	n := 0
	for _, o := range m.outcomes {
		if o.Action.Failed() {
			n++
		}
	}
	return n
}
