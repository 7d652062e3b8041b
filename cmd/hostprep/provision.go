package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/hostprep/internal/config"
	"github.com/alexisbeaulieu97/hostprep/internal/plans"
	hosterrors "github.com/alexisbeaulieu97/hostprep/pkg/errors"
)

var provisionCmdRunner = runProvision

func newProvisionCmd(root *rootFlags) *cobra.Command {
	var haltOnFailure bool

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Install packages, clone the agent and register its services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if cfg.Provision == nil {
				return hosterrors.NewConfigurationError("provision", "the plan document has no provision section; pass one with --config", nil)
			}

			if cmd.Flags().Changed("halt-on-failure") {
				cfg.Settings.HaltOnRequiredFailure = haltOnFailure
			}
			applyRootFlags(cfg, root)

			if err := config.Validate(cfg); err != nil {
				return err
			}
			return provisionCmdRunner(cmd.Context(), cfg, root.output, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&haltOnFailure, "halt-on-failure", true, "Stop at the first failed required step")

	return cmd
}

func runProvision(ctx context.Context, cfg *config.Config, output string, out io.Writer) error {
	log, err := newLogger(cfg.Settings)
	if err != nil {
		return err
	}
	defer log.Close()

	steps := plans.Provisioning(*cfg.Provision, newProvisionDeps(*cfg.Provision, log))
	_, err = executeRun(ctx, runRequest{
		Name:     "provision " + cfg.Name,
		Steps:    steps,
		Settings: cfg.Settings,
		Output:   output,
		Out:      out,
		Log:      log,
	})
	return err
}
