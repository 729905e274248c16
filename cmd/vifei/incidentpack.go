package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vifei-systems/vifei/commbus"
	"github.com/vifei-systems/vifei/coreengine/observability"
	"github.com/vifei-systems/vifei/internal/cliproto"
	"github.com/vifei-systems/vifei/internal/incidentpack"
)

func newIncidentPackCmd() *cobra.Command {
	var leftBlobDir, rightBlobDir, outDir string

	cmd := &cobra.Command{
		Use:   "incident-pack <left-log-path> <right-log-path>",
		Short: "Build a reviewer evidence directory: diff, per-side replay, per-side export",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand("incident-pack", func() outcome {
				return runIncidentPack(args[0], args[1], leftBlobDir, rightBlobDir, outDir)
			})
		},
	}

	cmd.Flags().StringVar(&leftBlobDir, "left-blob-dir", "", "left side's blob store (defaults to <left-log-path>.blobs)")
	cmd.Flags().StringVar(&rightBlobDir, "right-blob-dir", "", "right side's blob store (defaults to <right-log-path>.blobs)")
	cmd.Flags().StringVar(&outDir, "out", "", "evidence directory to write (required)")
	return cmd
}

func runIncidentPack(leftPath, rightPath, leftBlobDir, rightBlobDir, outDir string) outcome {
	shutdown, err := observability.InitTracer("incident-pack", newStdLogger(flagVerbose))
	if err != nil {
		return runtimeErr("initializing tracer", err)
	}
	defer shutdown(context.Background())

	if outDir == "" {
		return fail(cliproto.CodeInvalidArgs, "missing required --out", "pass --out <evidence-dir>")
	}
	for _, p := range []string{leftPath, rightPath} {
		if _, statErr := os.Stat(p); statErr != nil {
			return fail(cliproto.CodeNotFound, fmt.Sprintf("event log not found: %s", p),
				"check the path and try again")
		}
	}
	if leftBlobDir == "" {
		leftBlobDir = leftPath + ".blobs"
	}
	if rightBlobDir == "" {
		rightBlobDir = rightPath + ".blobs"
	}

	bus := newProgressBus()
	ctx := context.Background()

	result, err := incidentpack.Run(
		incidentpack.SideInput{LogPath: leftPath, BlobDir: leftBlobDir},
		incidentpack.SideInput{LogPath: rightPath, BlobDir: rightBlobDir},
		time.Now().UTC(),
	)
	if err != nil {
		return runtimeErr("building incident pack", err)
	}
	if err := bus.Publish(ctx, &commbus.IncidentPackStageCompleted{Stage: "diff"}); err != nil {
		observability.RecordBusPublishError("IncidentPackStageCompleted")
	}

	if err := incidentpack.Write(result, outDir); err != nil {
		return runtimeErr("writing evidence directory", err)
	}
	if err := bus.Publish(ctx, &commbus.IncidentPackStageCompleted{Stage: "write"}); err != nil {
		observability.RecordBusPublishError("IncidentPackStageCompleted")
	}

	return ok(fmt.Sprintf("evidence directory written to %s", outDir), result, func(w *os.File, data any) {
		r := data.(incidentpack.Result)
		fmt.Fprintf(w, "left:  %d events, state_hash=%s\n", r.Left.EventCount, r.Left.StateHash)
		fmt.Fprintf(w, "right: %d events, state_hash=%s\n", r.Right.EventCount, r.Right.StateHash)
		fmt.Fprintf(w, "delta: %d record(s)\n", len(r.Delta.Records))
	})
}
