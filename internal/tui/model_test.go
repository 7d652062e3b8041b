package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/hostprep/internal/engine"
)

func testSteps() []engine.Step {
	return []engine.Step{
		{ID: "service-installed", Description: "service is installed"},
		{ID: "configure-own-process", Description: "service runs in its own process"},
		{ID: "test-capture", Description: "a screenshot can be captured"},
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestNewModelTracksDeclarationOrder(t *testing.T) {
	m := NewModel("diagnose", testSteps(), false)

	require.Equal(t, 3, m.TotalSteps())
	require.Zero(t, m.CompletedSteps())
	require.Equal(t, []string{"service-installed", "configure-own-process", "test-capture"}, m.order)
	require.False(t, m.IsFinished())
	require.Nil(t, m.Init())
}

func TestModelRecordsOutcomes(t *testing.T) {
	m := NewModel("diagnose", testSteps(), false)

	m, _ = update(t, m, StepStartMsg{ID: "service-installed"})
	require.Equal(t, "service-installed", m.running)

	m, _ = update(t, m, StepOutcomeMsg{Outcome: engine.StepOutcome{StepID: "service-installed", Action: engine.ActionSkipped}})
	require.Empty(t, m.running)
	require.Equal(t, 1, m.CompletedSteps())

	m, _ = update(t, m, StepOutcomeMsg{Outcome: engine.StepOutcome{StepID: "configure-own-process", Action: engine.ActionApplyFailed}})
	require.Equal(t, 2, m.CompletedSteps())
	require.Equal(t, 1, m.failedSteps())
}

func TestModelIgnoresAnonymousOutcome(t *testing.T) {
	m := NewModel("diagnose", testSteps(), false)
	m, _ = update(t, m, StepOutcomeMsg{})
	require.Zero(t, m.CompletedSteps())
}

func TestModelOutcomeUpdatesDoNotLeakIntoCopies(t *testing.T) {
	m := NewModel("diagnose", testSteps(), false)
	before := m

	_, _ = update(t, m, StepOutcomeMsg{Outcome: engine.StepOutcome{StepID: "test-capture", Action: engine.ActionApplied}})
	require.Zero(t, before.CompletedSteps())
}

func TestModelQuitsOnReport(t *testing.T) {
	m := NewModel("diagnose", testSteps(), false)
	report := &engine.RunReport{Status: engine.StatusSuccess}

	m, cmd := update(t, m, RunFinishedMsg{Report: report})
	require.True(t, m.IsFinished())
	require.Same(t, report, m.Report())
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModelCtrlCCancelsRunOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	m := NewModel("diagnose", testSteps(), false).WithCancel(func() {
		calls++
		cancel()
	})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.Nil(t, cmd, "the program keeps running until the report arrives")
	require.True(t, m.cancelled)
	require.False(t, m.IsFinished())
	require.True(t, errors.Is(ctx.Err(), context.Canceled))

	_, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.Equal(t, 1, calls)
}
