package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vifei-systems/vifei/commbus"
	"github.com/vifei-systems/vifei/coreengine/config"
	"github.com/vifei-systems/vifei/coreengine/observability"
	"github.com/vifei-systems/vifei/internal/cliproto"
	"github.com/vifei-systems/vifei/internal/tour"
)

func newTourCmd() *cobra.Command {
	var fixturePath, workDir, artifactsDir string

	cmd := &cobra.Command{
		Use:   "tour <fixture-path>",
		Short: "Run the stress harness over a cassette fixture and emit the four proof artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixturePath = args[0]
			return runCommand("tour", func() outcome {
				return runTour(fixturePath, workDir, artifactsDir)
			})
		},
	}

	cmd.Flags().StringVar(&workDir, "work-dir", "", "scratch directory for the throwaway log (defaults to a temp dir)")
	cmd.Flags().StringVar(&artifactsDir, "artifacts-dir", "", "directory to write metrics.json/viewmodel.hash/ansi.capture/timetravel.capture into (required)")
	return cmd
}

func runTour(fixturePath, workDir, artifactsDir string) outcome {
	shutdown, err := observability.InitTracer("tour", newStdLogger(flagVerbose))
	if err != nil {
		return runtimeErr("initializing tracer", err)
	}
	defer shutdown(context.Background())

	if artifactsDir == "" {
		return fail(cliproto.CodeInvalidArgs, "missing required --artifacts-dir", "pass --artifacts-dir <dir>")
	}

	f, err := os.Open(fixturePath)
	if err != nil {
		return fail(cliproto.CodeNotFound, fmt.Sprintf("fixture not found: %s", fixturePath),
			"check the path and try again")
	}
	defer f.Close()

	if !config.GetEngineConfig().StressEnabled {
		return fail(cliproto.CodeInvalidArgs,
			"stress harness is disabled by engine configuration",
			"set stress_enabled: true in the config overlay to allow this engine to run the tour harness")
	}

	if workDir == "" {
		var err error
		workDir, err = os.MkdirTemp("", "vifei-tour-*")
		if err != nil {
			return runtimeErr("creating scratch directory", err)
		}
		defer os.RemoveAll(workDir)
	}

	bus := newProgressBus()
	ctx := context.Background()
	if err := bus.Publish(ctx, &commbus.TourStarted{RunID: fixturePath, FixtureEvents: 0}); err != nil {
		observability.RecordBusPublishError("TourStarted")
	}

	artifacts, err := tour.RunFixture(f, workDir)
	if err != nil {
		return runtimeErr("running stress harness", err)
	}

	if err := tour.WriteArtifacts(artifacts, artifactsDir); err != nil {
		return runtimeErr("writing artifacts", err)
	}

	observability.RecordTourRun(fixturePath, artifacts.Metrics.DegradationLevelFinal, int(artifacts.Metrics.TierADrops))
	if err := bus.Publish(ctx, &commbus.TourCompleted{
		RunID:        fixturePath,
		ArtifactsDir: artifactsDir,
		EventCount:   artifacts.Metrics.EventCountTotal,
		FinalLevel:   artifacts.Metrics.DegradationLevelFinal,
		TierADrops:   artifacts.Metrics.TierADrops,
	}); err != nil {
		observability.RecordBusPublishError("TourCompleted")
	}

	return ok(fmt.Sprintf("tour artifacts written to %s", artifactsDir), artifacts.Metrics, func(w *os.File, data any) {
		m := data.(tour.Metrics)
		fmt.Fprintf(w, "events:          %d\n", m.EventCountTotal)
		fmt.Fprintf(w, "tier A drops:    %d\n", m.TierADrops)
		fmt.Fprintf(w, "final level:     %s\n", m.DegradationLevelFinal)
		fmt.Fprintf(w, "max level seen:  %s\n", m.MaxDegradationLevel)
		fmt.Fprintln(w)
		fmt.Fprint(w, artifacts.ANSICapture)
	})
}
