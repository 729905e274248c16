// Package main implements the vifei command-line interface: the six
// commands (view, export, tour, compare, incident-pack, verify) through
// which a human or an automated caller inspects, replays, and shares a
// forensic event log, every one of them a single offline invocation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vifei-systems/vifei/coreengine/config"
)

var (
	flagRobot   bool
	flagVerbose bool
	flagConfig  string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vifei",
		Short:         "Forensic event-log engine for AI agent runs",
		Long:          "vifei inspects, replays, diffs, and shares forensic event logs recorded from AI agent runs, without ever reordering or discarding a Tier A event.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadYAMLOverlay(flagConfig)
			if err != nil {
				return fmt.Errorf("loading config overlay %s: %w", flagConfig, err)
			}
			config.SetEngineConfig(cfg)
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&flagRobot, "robot", false, "emit the machine-readable JSON envelope instead of human text")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug-level tracing output on stderr")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to an EngineConfig YAML overlay (optional)")

	root.AddCommand(
		newViewCmd(),
		newExportCmd(),
		newTourCmd(),
		newCompareCmd(),
		newIncidentPackCmd(),
		newVerifyCmd(),
	)
	return root
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vifei: %v\n", err)
		os.Exit(4) // RUNTIME_ERROR: cobra-level failure (bad flags, config load)
	}
	os.Exit(int(lastExitCode))
}
