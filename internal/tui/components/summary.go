package components

import (
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/hostprep/internal/engine"
)

// SummaryData aggregates what the summary renders. Report is nil while the
// run is still in progress.
type SummaryData struct {
	Total     int
	Completed int
	Cancelled bool
	Report    *engine.RunReport
}

// Summary renders the run verdict, guard activity and recommendations.
type Summary struct {
	data SummaryData
}

// NewSummary creates a new Summary component.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

var actionOrder = []engine.Action{
	engine.ActionApplied,
	engine.ActionSkipped,
	engine.ActionWouldApply,
	engine.ActionApplyFailed,
	engine.ActionVerifyFailed,
	engine.ActionProbeFailed,
}

// View renders the summary.
func (s Summary) View() string {
	report := s.data.Report
	if report == nil {
		if s.data.Cancelled {
			return "Cancelling, waiting for the current step to finish"
		}
		if s.data.Total == 0 {
			return ""
		}
		return fmt.Sprintf("Steps: %d/%d completed", s.data.Completed, s.data.Total)
	}

	lines := []string{fmt.Sprintf("Status: %s", report.Status)}
	if report.DryRun {
		lines[0] += " (dry run)"
	}

	counts := report.Counts()
	var parts []string
	for _, action := range actionOrder {
		if n := counts[action]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, action))
		}
	}
	if len(parts) > 0 {
		lines = append(lines, "Steps: "+strings.Join(parts, ", "))
	}
	if notRun := s.data.Total - len(report.Outcomes); notRun > 0 {
		lines = append(lines, fmt.Sprintf("Not attempted: %d", notRun))
	}

	switch {
	case report.Interrupted != nil:
		lines = append(lines, fmt.Sprintf("Run interrupted: %v", report.Interrupted))
	case report.Halted:
		lines = append(lines, "Run halted after a required step failed")
	}

	for _, g := range report.Guards {
		switch {
		case !g.Acquired:
			lines = append(lines, fmt.Sprintf("Guard %s was not acquired: %v", g.ID, g.Err))
		case !g.Released:
			lines = append(lines, fmt.Sprintf("Guard %s was NOT released: %v", g.ID, g.Err))
		default:
			lines = append(lines, fmt.Sprintf("Guard %s acquired and released", g.ID))
		}
	}

	if recs := report.Recommendations(); len(recs) > 0 {
		lines = append(lines, "Recommendations:")
		for _, r := range recs {
			lines = append(lines, "  • "+r)
		}
	}

	return strings.Join(lines, "\n")
}
