package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vifei-systems/vifei/commbus"
)

// progressEventTypes are the lifecycle events a long-running command
// publishes on its way to a result. newProgressBus subscribes a single
// handler to all of them so every command gets the same stderr progress
// line for free, in the order the pipeline actually reaches each stage.
var progressEventTypes = []string{
	"TourStarted", "TourStageCompleted", "TourCompleted",
	"ExportStarted", "ExportBundled", "ExportRefused",
	"IncidentPackStageCompleted", "CompareCompleted",
}

// newProgressBus builds a bus whose only subscriber prints one line per
// lifecycle event to stderr. Commands publish through it instead of
// logging ad hoc, so the progress line and the structured bus event can
// never drift apart.
func newProgressBus() *commbus.InMemoryCommBus {
	bus := commbus.NewInMemoryCommBusWithLogger(5*time.Second, newBusLogger(flagVerbose))
	for _, eventType := range progressEventTypes {
		bus.Subscribe(eventType, printProgressLine)
	}
	return bus
}

func printProgressLine(_ context.Context, message commbus.Message) (any, error) {
	fmt.Fprintf(os.Stderr, "vifei: %s\n", describeProgress(message))
	return nil, nil
}

func describeProgress(message commbus.Message) string {
	switch m := message.(type) {
	case *commbus.TourStarted:
		return fmt.Sprintf("tour %s: starting, %d fixture event(s)", m.RunID, m.FixtureEvents)
	case *commbus.TourStageCompleted:
		return fmt.Sprintf("tour %s: reached commit_index=%d at level %s", m.RunID, m.CommitIndex, m.Level)
	case *commbus.TourCompleted:
		return fmt.Sprintf("tour %s: wrote artifacts to %s (%d events, level %s, %d tier-A drop(s))",
			m.RunID, m.ArtifactsDir, m.EventCount, m.FinalLevel, m.TierADrops)
	case *commbus.ExportStarted:
		return fmt.Sprintf("export %s: scanning %s", m.RunID, m.LogPath)
	case *commbus.ExportBundled:
		return fmt.Sprintf("export %s: bundled %s (%s)", m.RunID, m.BundlePath, m.BundleHash)
	case *commbus.ExportRefused:
		return fmt.Sprintf("export %s: refused (%d reason(s))", m.RunID, len(m.Reasons))
	case *commbus.IncidentPackStageCompleted:
		return fmt.Sprintf("incident-pack: %s stage complete", m.Stage)
	case *commbus.CompareCompleted:
		return fmt.Sprintf("compare %s vs %s: %d divergent record(s)", m.LeftRunID, m.RightRunID, m.RecordCount)
	default:
		return commbus.GetMessageType(message)
	}
}
