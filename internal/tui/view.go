package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/hostprep/internal/engine"
	"github.com/alexisbeaulieu97/hostprep/internal/tui/components"
	"github.com/alexisbeaulieu97/hostprep/pkg/diff"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render(fmt.Sprintf("hostprep • %s", m.displayTitle())))

	progress := components.NewProgress(m.TotalSteps()).View(m.CompletedSteps(), m.failedSteps())
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	entries := components.NewStepList(m.order, m.descriptions, m.outcomes, m.running).Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Steps"), m.renderEntries(entries))
	}

	summary := components.NewSummary(components.SummaryData{
		Total:     m.TotalSteps(),
		Completed: m.CompletedSteps(),
		Cancelled: m.cancelled,
		Report:    m.report,
	}).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m Model) renderEntries(entries []components.StepEntry) string {
	var lines []string
	for _, entry := range entries {
		if entry.Outcome == nil {
			icon := pendingStyle.Render("…")
			if entry.Running {
				icon = runningStyle.Render("⏳")
			}
			lines = append(lines, fmt.Sprintf(" %s %s", icon, entry.ID))
			continue
		}

		o := entry.Outcome
		line := fmt.Sprintf(" %s %s: %s", ActionIcon(o.Action), entry.ID, o.Action)
		if o.Duration > 0 {
			line = fmt.Sprintf("%s (%s)", line, o.Duration.Truncate(10*time.Millisecond))
		}
		lines = append(lines, line)

		if o.Err != nil {
			lines = append(lines, detailStyle.Render(o.Err.Error()))
		}
		if m.verbose {
			if changes := snapshotChanges(*o); changes != "" {
				lines = append(lines, detailStyle.Render(changes))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// snapshotChanges shows what a step changed. Steps that were not applied
// show what was observed instead.
func snapshotChanges(o engine.StepOutcome) string {
	if o.After == nil {
		return o.Before.String()
	}
	return diff.Changes(o.Before.String(), o.After.String())
}

func (m Model) displayTitle() string {
	if strings.TrimSpace(m.title) != "" {
		return m.title
	}
	return "reconcile"
}

// ActionIcon returns the glyph representing a terminal step action.
func ActionIcon(action engine.Action) string {
	switch action {
	case engine.ActionApplied:
		return successStyle.Render("✓")
	case engine.ActionSkipped:
		return skippedStyle.Render("✓")
	case engine.ActionWouldApply:
		return pendingStyle.Render("✱")
	case engine.ActionVerifyFailed:
		return warningStyle.Render("!")
	case engine.ActionApplyFailed, engine.ActionProbeFailed:
		return failureStyle.Render("✗")
	default:
		return pendingStyle.Render("…")
	}
}
