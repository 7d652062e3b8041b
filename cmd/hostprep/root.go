package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const (
	outputText = "text"
	outputYAML = "yaml"
)

type rootFlags struct {
	verbose    bool
	dryRun     bool
	configPath string
	output     string
	logFile    string
}

func (f *rootFlags) validate() error {
	switch strings.ToLower(f.output) {
	case outputText, outputYAML:
		f.output = strings.ToLower(f.output)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", f.output, outputText, outputYAML)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "hostprep",
		Short:         "hostprep reconciles a Windows lab machine to its declared state",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return flags.validate()
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging and snapshot diffs")
	cmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "Probe every step without making changes")
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a plan document (.yaml or .toml)")
	cmd.PersistentFlags().StringVarP(&flags.output, "output", "o", outputText, "Report format: text or yaml")
	cmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "Also append the run log as JSON to this file")

	cmd.AddCommand(newDiagnoseCmd(flags))
	cmd.AddCommand(newProvisionCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
