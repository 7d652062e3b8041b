package components

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

var failedLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

// Progress renders how many steps have reached a terminal action.
type Progress struct {
	bar   progress.Model
	total int
}

// NewProgress creates a progress component for the given step count.
func NewProgress(total int) Progress {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30
	return Progress{bar: bar, total: total}
}

// View renders the bar for done steps, noting how many of them failed.
func (p Progress) View(done, failed int) string {
	ratio := 0.0
	if p.total > 0 {
		ratio = math.Min(1.0, float64(done)/float64(p.total))
	}
	label := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d/%d", done, p.total))
	parts := []string{label, " ", p.bar.ViewAs(ratio)}
	if failed > 0 {
		parts = append(parts, " ", failedLabelStyle.Render(fmt.Sprintf("%d failed", failed)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}
