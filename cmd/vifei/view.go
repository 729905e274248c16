package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vifei-systems/vifei/coreengine/observability"
	"github.com/vifei-systems/vifei/coreengine/typeutil"
	"github.com/vifei-systems/vifei/internal/cliproto"
	"github.com/vifei-systems/vifei/internal/eventlog"
	"github.com/vifei-systems/vifei/internal/projection"
	"github.com/vifei-systems/vifei/internal/state"
	"github.com/vifei-systems/vifei/internal/tour"
)

func newViewCmd() *cobra.Command {
	var field string
	var level string
	var queuePressure string

	cmd := &cobra.Command{
		Use:   "view <log-path>",
		Short: "Replay a committed event log and project its current Truth HUD view model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand("view", func() outcome {
				return runView(args[0], level, field, queuePressure)
			})
		},
	}

	cmd.Flags().StringVar(&level, "level", "L0", "degradation ladder level to project at (L0-L5)")
	cmd.Flags().StringVar(&field, "field", "", "dotted path into the view model to print instead of the whole thing, e.g. tier_a_summaries.ToolCall")
	cmd.Flags().StringVar(&queuePressure, "queue-pressure", "",
		"override queue_pressure_fixed with a live reading in [0.0, 1.0] instead of the last committed PolicyDecision")
	return cmd
}

func runView(logPath, levelFlag, field, queuePressureFlag string) outcome {
	shutdown, err := observability.InitTracer("view", newStdLogger(flagVerbose))
	if err != nil {
		return runtimeErr("initializing tracer", err)
	}
	defer shutdown(context.Background())

	level, err := projection.ParseLadderLevel(levelFlag)
	if err != nil {
		return fail(cliproto.CodeInvalidArgs, fmt.Sprintf("invalid --level %q", levelFlag),
			"use one of L0, L1, L2, L3, L4, L5")
	}

	if _, statErr := os.Stat(logPath); statErr != nil {
		return fail(cliproto.CodeNotFound, fmt.Sprintf("event log not found: %s", logPath),
			"check the path and try again")
	}

	events, err := eventlog.ReadCommitted(logPath)
	if err != nil {
		return runtimeErr("reading event log", err)
	}

	s, _ := state.Replay(events)
	invariants := projection.Invariants{
		Version:          tour.ProjectionInvariantsVersion,
		DegradationLevel: level,
	}

	var vm *projection.ViewModel
	if queuePressureFlag == "" {
		vm = projection.Project(s, invariants)
	} else {
		pressure, err := strconv.ParseFloat(queuePressureFlag, 64)
		if err != nil {
			return fail(cliproto.CodeInvalidArgs, fmt.Sprintf("invalid --queue-pressure %q", queuePressureFlag),
				"pass a decimal in [0.0, 1.0]")
		}
		vm = projection.ProjectWithPressure(s, invariants, pressure)
	}

	if field != "" {
		value, found, err := extractField(vm, field)
		if err != nil {
			return runtimeErr("extracting field", err)
		}
		if !found {
			return fail(cliproto.CodeNotFound, fmt.Sprintf("field %q not present in view model", field),
				"list available top-level fields: tier_a_summaries, aggregation_mode, degradation_level, queue_pressure_fixed, tier_a_drops, export_safety_state")
		}
		return ok(fmt.Sprintf("%v", value), value, func(w *os.File, data any) {
			fmt.Fprintln(w, data)
		})
	}

	return ok("view model projected", vm, func(w *os.File, data any) {
		rendered := data.(*projection.ViewModel)
		fmt.Fprintln(w, tour.RenderTruthHUD(rendered))
	})
}

// extractField walks a dotted path into the view model's canonical JSON
// representation, decoded generically so arbitrary future fields don't
// need bespoke accessors. The walk itself is typeutil.GetNestedValue's job,
// since the path is caller-supplied and the tree may bottom out before the
// path does.
func extractField(vm *projection.ViewModel, field string) (any, bool, error) {
	raw, err := vm.MarshalCanonical()
	if err != nil {
		return nil, false, err
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, false, err
	}

	value, found := typeutil.GetNestedValue(decoded, field)
	return value, found, nil
}
