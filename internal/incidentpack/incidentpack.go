// Package incidentpack composes the delta engine, the reducer, and the
// share-safe export pipeline into a single evidence directory for the
// incident-pack command: compare two event logs, replay each side, export
// each side, and write everything a reviewer needs into one place.
package incidentpack

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vifei-systems/vifei/internal/delta"
	"github.com/vifei-systems/vifei/internal/event"
	"github.com/vifei-systems/vifei/internal/eventlog"
	"github.com/vifei-systems/vifei/internal/exportpipeline"
	"github.com/vifei-systems/vifei/internal/hashing"
	"github.com/vifei-systems/vifei/internal/state"
	"github.com/vifei-systems/vifei/internal/tour"
)

// PackVersion identifies the incident-pack manifest schema.
const PackVersion = "incident-pack-v0.1"

// SideInput locates one side's event log and sibling blob store.
type SideInput struct {
	LogPath string
	BlobDir string
}

// SideReport summarizes one side's replay and export outcome. ExportError
// is set (and Export left zero-valued) when that side's export step failed
// outright, so a failure on one side never prevents reporting the other.
type SideReport struct {
	EventCount      uint64                  `json:"event_count"`
	LastCommitIndex *uint64                 `json:"last_commit_index,omitempty"`
	StateHash       hashing.Digest          `json:"state_hash"`
	CheckpointsAt   []uint64                `json:"checkpoints_at"`
	ViewModelHash   hashing.Digest          `json:"viewmodel_hash"`
	Metrics         tour.Metrics            `json:"-"`
	Export          *exportpipeline.Outcome `json:"export,omitempty"`
	ExportError     string                  `json:"export_error,omitempty"`
}

// PackManifest is the top-level manifest.json written into the evidence
// directory.
type PackManifest struct {
	PackVersion      string `json:"pack_version"`
	DeltaRecordCount int    `json:"delta_record_count"`
	LeftEventCount   uint64 `json:"left_event_count"`
	RightEventCount  uint64 `json:"right_event_count"`
}

// Result is everything incident-pack produces, before being written to
// disk.
type Result struct {
	Left      SideReport
	Right     SideReport
	Delta     delta.RunDelta
	Manifest  PackManifest
}

// Run executes compare + per-side replay + per-side export and returns the
// composed result. It does not write anything to disk; call Write to emit
// the evidence directory.
func Run(left, right SideInput, nowUTC time.Time) (Result, error) {
	leftEvents, err := readCommittedLog(left.LogPath)
	if err != nil {
		return Result{}, fmt.Errorf("incidentpack: reading left log: %w", err)
	}
	rightEvents, err := readCommittedLog(right.LogPath)
	if err != nil {
		return Result{}, fmt.Errorf("incidentpack: reading right log: %w", err)
	}

	runDelta, err := delta.DiffRuns(leftEvents, rightEvents)
	if err != nil {
		return Result{}, fmt.Errorf("incidentpack: diffing runs: %w", err)
	}

	leftReport, err := buildSideReport(leftEvents, left, nowUTC)
	if err != nil {
		return Result{}, fmt.Errorf("incidentpack: left side: %w", err)
	}
	rightReport, err := buildSideReport(rightEvents, right, nowUTC)
	if err != nil {
		return Result{}, fmt.Errorf("incidentpack: right side: %w", err)
	}

	manifest := PackManifest{
		PackVersion:      PackVersion,
		DeltaRecordCount: len(runDelta.Records),
		LeftEventCount:   uint64(len(leftEvents)),
		RightEventCount:  uint64(len(rightEvents)),
	}

	return Result{Left: leftReport, Right: rightReport, Delta: runDelta, Manifest: manifest}, nil
}

func buildSideReport(events []event.CommittedEvent, in SideInput, nowUTC time.Time) (SideReport, error) {
	s, checkpoints := state.Replay(events)
	h, err := state.StateHash(s)
	if err != nil {
		return SideReport{}, fmt.Errorf("hashing state: %w", err)
	}

	metrics, _, vmh, err := tour.MetricsFromState(s, uint64(len(events)))
	if err != nil {
		return SideReport{}, fmt.Errorf("projecting view model: %w", err)
	}

	report := SideReport{
		EventCount:      uint64(len(events)),
		LastCommitIndex: s.LastCommitIndex,
		StateHash:       h,
		CheckpointsAt:   checkpoints,
		ViewModelHash:   vmh,
		Metrics:         metrics,
	}

	bundlePath := in.LogPath + ".bundle.tar.zst"
	outcome, err := exportpipeline.Run(in.LogPath, in.BlobDir, bundlePath, nowUTC)
	if err != nil {
		// A failed export on one side is reported, not fatal to the pack.
		report.ExportError = err.Error()
		return report, nil
	}
	report.Export = &outcome
	return report, nil
}

// Write emits the evidence directory: left/ and right/, each holding
// report.json, metrics.json, and viewmodel.hash, plus bundle.tar.zst when
// that side's export was share-safe; a top-level delta.json and
// manifest.json summarize the pair.
func Write(result Result, outDir string) error {
	if err := writeSide(filepath.Join(outDir, "left"), result.Left); err != nil {
		return fmt.Errorf("incidentpack: left side: %w", err)
	}
	if err := writeSide(filepath.Join(outDir, "right"), result.Right); err != nil {
		return fmt.Errorf("incidentpack: right side: %w", err)
	}
	if err := writeJSON(filepath.Join(outDir, "delta.json"), result.Delta); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(outDir, "manifest.json"), result.Manifest); err != nil {
		return err
	}
	return nil
}

func writeSide(sideDir string, report SideReport) error {
	if err := os.MkdirAll(sideDir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := writeJSON(filepath.Join(sideDir, "report.json"), report); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(sideDir, "metrics.json"), report.Metrics); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(sideDir, "viewmodel.hash"), []byte(string(report.ViewModelHash)+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing viewmodel.hash: %w", err)
	}
	if report.Export != nil && !report.Export.Refused && report.Export.BundlePath != "" {
		if err := copyFile(report.Export.BundlePath, filepath.Join(sideDir, "bundle.tar.zst")); err != nil {
			return fmt.Errorf("copying bundle: %w", err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("incidentpack: marshaling %s: %w", path, err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// readCommittedLog reads an already-committed event-log JSONL file, the
// same format the Append Writer produces.
func readCommittedLog(logPath string) ([]event.CommittedEvent, error) {
	f, err := os.Open(logPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", logPath, err)
	}
	defer f.Close()

	var events []event.CommittedEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), eventlog.DefaultLineSizeCeiling+4096)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev event.CommittedEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("%s: corrupted at line %d: %w", logPath, lineNo, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: scanning: %w", logPath, err)
	}
	return events, nil
}
