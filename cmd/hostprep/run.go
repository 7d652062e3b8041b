package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/hostprep/internal/config"
	"github.com/alexisbeaulieu97/hostprep/internal/engine"
	"github.com/alexisbeaulieu97/hostprep/internal/logger"
	"github.com/alexisbeaulieu97/hostprep/internal/tui"
)

// StatusError reports a run that finished without converging.
type StatusError struct {
	Status engine.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("run finished with status %s", e.Status)
}

// isTerminal decides whether the text report runs as an interactive program.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runRequest is everything a subcommand hands to executeRun.
type runRequest struct {
	Name     string
	Steps    []engine.Step
	Settings config.Settings
	Output   string
	Out      io.Writer
	Log      *logger.Logger
}

func loadConfig(flags *rootFlags) (*config.Config, error) {
	if flags.configPath == "" {
		cfg := config.Default()
		return &cfg, nil
	}
	return config.Load(flags.configPath)
}

func applyRootFlags(cfg *config.Config, flags *rootFlags) {
	cfg.Settings.DryRun = cfg.Settings.DryRun || flags.dryRun
	cfg.Settings.Verbose = cfg.Settings.Verbose || flags.verbose
	if flags.logFile != "" {
		cfg.Settings.LogFile = flags.logFile
	}
}

func newLogger(settings config.Settings) (*logger.Logger, error) {
	level := "info"
	if settings.Verbose {
		level = "debug"
	}
	return logger.New(logger.Options{Level: level, HumanReadable: true, File: settings.LogFile})
}

func runOptions(req runRequest) engine.RunOptions {
	return engine.RunOptions{
		Name:                  req.Name,
		HaltOnRequiredFailure: req.Settings.HaltOnRequiredFailure,
		StepTimeout:           req.Settings.Timeout(),
		DryRun:                req.Settings.DryRun,
	}
}

// executeRun reconciles req.Steps and renders the report. The returned
// error is non-nil unless the run succeeded.
func executeRun(ctx context.Context, req runRequest) (*engine.RunReport, error) {
	var (
		report *engine.RunReport
		err    error
	)

	switch {
	case req.Output == outputYAML:
		report, err = engine.New(req.Log).Run(ctx, req.Steps, runOptions(req))
		if err == nil {
			err = writeYAML(req.Out, report)
		}
	case isTerminal(req.Out):
		report, err = runInteractive(ctx, req)
	default:
		report, err = runPlain(ctx, req)
	}

	if err != nil {
		return report, err
	}
	if report.Status != engine.StatusSuccess {
		return report, &StatusError{Status: report.Status}
	}
	return report, nil
}

func writeYAML(w io.Writer, report *engine.RunReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

func runPlain(ctx context.Context, req runRequest) (*engine.RunReport, error) {
	state := tui.NewModel(req.Name, req.Steps, req.Settings.Verbose)
	dispatch := func(msg tea.Msg) {
		updated, _ := state.Update(msg)
		if m, ok := updated.(tui.Model); ok {
			state = m
		}
	}

	opts := runOptions(req)
	opts.OnOutcome = func(o engine.StepOutcome) { dispatch(tui.StepOutcomeMsg{Outcome: o}) }

	report, err := engine.New(req.Log).Run(ctx, req.Steps, opts)
	if err != nil {
		return report, err
	}
	dispatch(tui.RunFinishedMsg{Report: report})

	fmt.Fprint(req.Out, state.View())
	return report, nil
}

func runInteractive(ctx context.Context, req runRequest) (*engine.RunReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := tui.NewModel(req.Name, req.Steps, req.Settings.Verbose).WithCancel(cancel)
	program := tea.NewProgram(state, tea.WithOutput(req.Out))

	var programErr error
	done := make(chan struct{})
	go func() {
		_, programErr = program.Run()
		close(done)
	}()

	opts := runOptions(req)
	opts.OnStepStart = func(s engine.Step) { program.Send(tui.StepStartMsg{ID: s.ID}) }
	opts.OnOutcome = func(o engine.StepOutcome) { program.Send(tui.StepOutcomeMsg{Outcome: o}) }

	report, err := engine.New(req.Log).Run(ctx, req.Steps, opts)
	if err != nil {
		program.Quit()
		<-done
		return report, err
	}

	program.Send(tui.RunFinishedMsg{Report: report})
	<-done
	if programErr != nil {
		return report, programErr
	}
	return report, nil
}
