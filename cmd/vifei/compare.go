package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vifei-systems/vifei/commbus"
	"github.com/vifei-systems/vifei/coreengine/observability"
	"github.com/vifei-systems/vifei/internal/cliproto"
	"github.com/vifei-systems/vifei/internal/delta"
	"github.com/vifei-systems/vifei/internal/eventlog"
)

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <left-log-path> <right-log-path>",
		Short: "Diff two committed event logs by commit_index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand("compare", func() outcome {
				return runCompare(args[0], args[1])
			})
		},
	}
	return cmd
}

func runCompare(leftPath, rightPath string) outcome {
	shutdown, err := observability.InitTracer("compare", newStdLogger(flagVerbose))
	if err != nil {
		return runtimeErr("initializing tracer", err)
	}
	defer shutdown(context.Background())

	for _, p := range []string{leftPath, rightPath} {
		if _, statErr := os.Stat(p); statErr != nil {
			return fail(cliproto.CodeNotFound, fmt.Sprintf("event log not found: %s", p),
				"check the path and try again")
		}
	}

	left, err := eventlog.ReadCommitted(leftPath)
	if err != nil {
		return runtimeErr("reading left log", err)
	}
	right, err := eventlog.ReadCommitted(rightPath)
	if err != nil {
		return runtimeErr("reading right log", err)
	}

	runDelta, err := delta.DiffRuns(left, right)
	if err != nil {
		return runtimeErr("diffing runs", err)
	}

	bus := newProgressBus()
	if err := bus.Publish(context.Background(), &commbus.CompareCompleted{
		LeftRunID:   leftPath,
		RightRunID:  rightPath,
		RecordCount: len(runDelta.Records),
	}); err != nil {
		observability.RecordBusPublishError("CompareCompleted")
	}

	if len(runDelta.Records) == 0 {
		return ok("no divergence found", runDelta, func(w *os.File, data any) {
			fmt.Fprintln(w, "identical: no commit_index divergence between left and right")
		})
	}

	o := ok("divergence found", runDelta, func(w *os.File, data any) {
		d := data.(delta.RunDelta)
		for _, rec := range d.Records {
			fmt.Fprintf(w, "commit_index=%d %s %s\n", rec.CommitIndex, rec.JSONPath, rec.ChangeClass)
		}
	})
	o.code = cliproto.CodeDiffFound
	o.message = fmt.Sprintf("%d divergent record(s)", len(runDelta.Records))
	return o
}
