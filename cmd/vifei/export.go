package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vifei-systems/vifei/commbus"
	"github.com/vifei-systems/vifei/coreengine/config"
	"github.com/vifei-systems/vifei/coreengine/observability"
	"github.com/vifei-systems/vifei/internal/cliproto"
	"github.com/vifei-systems/vifei/internal/exportpipeline"
)

func newExportCmd() *cobra.Command {
	var blobDir, bundlePath string

	cmd := &cobra.Command{
		Use:   "export <log-path>",
		Short: "Run the share-safe export pipeline: scan for secrets, then bundle as tar+zstd",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand("export", func() outcome {
				return runExport(args[0], blobDir, bundlePath)
			})
		},
	}

	cmd.Flags().StringVar(&blobDir, "blob-dir", "", "sibling blob store directory (defaults to <log-path>.blobs)")
	cmd.Flags().StringVar(&bundlePath, "out", "", "bundle output path (defaults to <log-path>.bundle.tar.zst)")
	return cmd
}

func runExport(logPath, blobDir, bundlePath string) outcome {
	shutdown, err := observability.InitTracer("export", newStdLogger(flagVerbose))
	if err != nil {
		return runtimeErr("initializing tracer", err)
	}
	defer shutdown(context.Background())

	if _, statErr := os.Stat(logPath); statErr != nil {
		return fail(cliproto.CodeNotFound, fmt.Sprintf("event log not found: %s", logPath),
			"check the path and try again")
	}
	if !config.GetEngineConfig().ExportEnabled {
		return fail(cliproto.CodeExportRefused,
			"export is disabled by engine configuration",
			"set export_enabled: true in the config overlay to allow this engine to produce share-safe bundles")
	}
	if blobDir == "" {
		blobDir = logPath + ".blobs"
	}
	if bundlePath == "" {
		bundlePath = logPath + ".bundle.tar.zst"
	}

	runID := filepath.Base(logPath)
	bus := newProgressBus()
	ctx := context.Background()
	if err := bus.Publish(ctx, &commbus.ExportStarted{RunID: runID, LogPath: logPath}); err != nil {
		observability.RecordBusPublishError("ExportStarted")
	}

	start := time.Now()
	result, err := exportpipeline.Run(logPath, blobDir, bundlePath, start.UTC())
	duration := time.Since(start).Seconds()

	if err != nil {
		observability.RecordExport(runID, "error", duration)
		return runtimeErr("running export pipeline", err)
	}

	if result.Refused {
		observability.RecordExport(runID, "refused", duration)
		reasons := make([]string, 0, len(result.RefusalReport.BlockedItems))
		for _, item := range result.RefusalReport.BlockedItems {
			reasons = append(reasons, fmt.Sprintf("%s: %s", item.FieldPath, item.MatchedPattern))
		}
		if err := bus.Publish(ctx, &commbus.ExportRefused{RunID: runID, Reasons: reasons}); err != nil {
			observability.RecordBusPublishError("ExportRefused")
		}
		return fail(cliproto.CodeExportRefused,
			fmt.Sprintf("export refused: %s", result.RefusalReport.Summary),
			"redact the flagged fields or blobs and re-run export",
		)
	}

	observability.RecordExport(runID, "bundled", duration)
	if err := bus.Publish(ctx, &commbus.ExportBundled{RunID: runID, BundlePath: result.BundlePath, BundleHash: string(result.BundleHash)}); err != nil {
		observability.RecordBusPublishError("ExportBundled")
	}
	return ok(fmt.Sprintf("bundle written to %s", result.BundlePath), result, func(w *os.File, data any) {
		o := data.(exportpipeline.Outcome)
		fmt.Fprintf(w, "bundle: %s\n", o.BundlePath)
		fmt.Fprintf(w, "hash:   %s\n", o.BundleHash)
		fmt.Fprintf(w, "files:  %d\n", len(o.Manifest.Files))
	})
}
