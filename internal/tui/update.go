package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/hostprep/internal/engine"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StepStartMsg:
		m.running = msg.ID
		return m, nil
	case StepOutcomeMsg:
		id := msg.Outcome.StepID
		if id == "" {
			return m, nil
		}
		if _, known := m.descriptions[id]; !known {
			m.order = append(m.order, id)
			m.descriptions[id] = msg.Outcome.Description
		}
		m.outcomes = copyOutcomes(m.outcomes)
		m.outcomes[id] = msg.Outcome
		if m.running == id {
			m.running = ""
		}
		return m, nil
	case RunFinishedMsg:
		m.report = msg.Report
		m.running = ""
		m.finished = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC && !m.cancelled {
			// The run still releases its guards, so keep rendering until
			// the report arrives.
			m.cancelled = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	}

	return m, nil
}

func copyOutcomes(in map[string]engine.StepOutcome) map[string]engine.StepOutcome {
	out := make(map[string]engine.StepOutcome, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
