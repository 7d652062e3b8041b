package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/hostprep/internal/config"
	"github.com/alexisbeaulieu97/hostprep/internal/plans"
)

type diagnoseOptions struct {
	Service       string
	CapturePath   string
	HaltOnFailure bool
}

var diagnoseCmdRunner = runDiagnose

func newDiagnoseCmd(root *rootFlags) *cobra.Command {
	opts := diagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose-screenshot-service",
		Short: "Check and repair a service that captures the interactive desktop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("service") {
				cfg.Diagnose.Service = opts.Service
			}
			if flags.Changed("capture-path") {
				cfg.Diagnose.CapturePath = opts.CapturePath
			}
			if flags.Changed("halt-on-failure") {
				cfg.Settings.HaltOnRequiredFailure = opts.HaltOnFailure
			}
			applyRootFlags(cfg, root)

			if err := config.Validate(cfg); err != nil {
				return err
			}
			return diagnoseCmdRunner(cmd.Context(), cfg, root.output, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.Service, "service", "s", "", "Name of the screenshot service")
	cmd.Flags().StringVar(&opts.CapturePath, "capture-path", "", "Where the test screenshot is written")
	cmd.Flags().BoolVar(&opts.HaltOnFailure, "halt-on-failure", true, "Stop at the first failed required step")

	return cmd
}

func runDiagnose(ctx context.Context, cfg *config.Config, output string, out io.Writer) error {
	log, err := newLogger(cfg.Settings)
	if err != nil {
		return err
	}
	defer log.Close()

	steps := plans.ScreenshotDiagnosis(cfg.Diagnose, newScreenshotDeps(log))
	_, err = executeRun(ctx, runRequest{
		Name:     "diagnose " + cfg.Diagnose.Service,
		Steps:    steps,
		Settings: cfg.Settings,
		Output:   output,
		Out:      out,
		Log:      log,
	})
	return err
}
