// Package exportpipeline implements the share-safe export pipeline:
// discover referenced blobs, scan inline payloads and blob bytes for
// secrets, decide whether to refuse or bundle, and (on success) produce a
// normalized, reproducible tar+zstd archive.
package exportpipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/vifei-systems/vifei/internal/event"
	"github.com/vifei-systems/vifei/internal/eventlog"
	"github.com/vifei-systems/vifei/internal/hashing"
	"github.com/vifei-systems/vifei/internal/secretscan"
)

// ProjectionInvariantsVersion is embedded in every bundle manifest, tying
// an exported bundle to the exact projection rule set that produced the
// view a human reviewed before approving the export.
const ProjectionInvariantsVersion = "projection-invariants-v0.1"

// RefusalReportVersion identifies the refusal-report schema.
const RefusalReportVersion = "refusal-v0.1"

// ManifestVersion identifies the bundle-manifest schema.
const ManifestVersion = "manifest-v0.1"

// Finding is one location the scanner flagged.
type Finding struct {
	EventID        string  `json:"event_id"`
	FieldPath      string  `json:"field_path"`
	MatchedPattern string  `json:"matched_pattern"`
	BlobRef        *string `json:"blob_ref,omitempty"`
	RedactedMatch  string  `json:"redacted_match"`
}

// RefusalReport is written when scanning finds any secret.
type RefusalReport struct {
	ReportVersion   string    `json:"report_version"`
	EventlogPath    string    `json:"eventlog_path"`
	BlockedItems    []Finding `json:"blocked_items"`
	ScanTimestampUTC string   `json:"scan_timestamp_utc"`
	ScannerVersion  string    `json:"scanner_version"`
	Summary         string    `json:"summary"`
}

// ManifestEntry is one file's record inside a bundle manifest.
type ManifestEntry struct {
	Path   string `json:"path"`
	BLAKE3 string `json:"blake3"`
	Size   uint64 `json:"size"`
}

// Manifest is the bundle manifest written inside the archive.
type Manifest struct {
	ManifestVersion             string          `json:"manifest_version"`
	Files                       []ManifestEntry `json:"files"`
	CommitIndexRange            *[2]uint64      `json:"commit_index_range,omitempty"`
	ProjectionInvariantsVersion string          `json:"projection_invariants_version"`
}

// Outcome is the result of running the pipeline.
type Outcome struct {
	Refused       bool
	RefusalReport *RefusalReport
	BundlePath    string
	BundleHash    hashing.Digest
	Manifest      *Manifest
}

// Run executes discover -> scan -> decide -> bundle against the event log
// at logPath, with blobDir as the sibling blob store directory (may not
// exist, in which case blob-content scanning is skipped). bundlePath is
// where the tar.zst archive is written on success. nowUTC supplies the
// (informational, unhashed) scan timestamp.
func Run(logPath, blobDir, bundlePath string, nowUTC time.Time) (Outcome, error) {
	events, err := readLog(logPath)
	if err != nil {
		return Outcome{}, err
	}

	blobRefs := discoverBlobRefs(events)

	findings, err := scan(events, blobRefs, blobDir)
	if err != nil {
		return Outcome{}, err
	}

	if len(findings) > 0 {
		report := RefusalReport{
			ReportVersion:    RefusalReportVersion,
			EventlogPath:     baseName(logPath),
			BlockedItems:     findings,
			ScanTimestampUTC: nowUTC.UTC().Format("2006-01-02T15:04:05Z"),
			ScannerVersion:   secretscan.Version,
			Summary:          summarize(findings),
		}
		return Outcome{Refused: true, RefusalReport: &report}, nil
	}

	manifest, archive, err := bundle(events, blobRefs, blobDir, logPath)
	if err != nil {
		return Outcome{}, err
	}

	if err := os.WriteFile(bundlePath, archive, 0o644); err != nil {
		return Outcome{}, fmt.Errorf("exportpipeline: writing bundle %s: %w", bundlePath, err)
	}

	return Outcome{
		Refused:    false,
		BundlePath: bundlePath,
		BundleHash: hashing.Sum(archive),
		Manifest:   manifest,
	}, nil
}

func summarize(findings []Finding) string {
	locations := map[string]struct{}{}
	for _, f := range findings {
		key := f.EventID
		if f.BlobRef != nil {
			key = "blob:" + *f.BlobRef
		}
		locations[key+"\x00"+f.FieldPath] = struct{}{}
	}
	return fmt.Sprintf("Export refused: %d secret(s) detected in %d location(s)", len(findings), len(locations))
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}

func readLog(logPath string) ([]event.CommittedEvent, error) {
	f, err := os.Open(logPath)
	if err != nil {
		return nil, fmt.Errorf("exportpipeline: opening log %s: %w", logPath, err)
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
			return nil, fmt.Errorf("exportpipeline: %s: corrupted at line %d: %w", logPath, lineNo, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("exportpipeline: %s: scanning: %w", logPath, err)
	}
	return events, nil
}

func discoverBlobRefs(events []event.CommittedEvent) []string {
	set := map[string]struct{}{}
	for _, ev := range events {
		if ev.PayloadRef != nil {
			set[*ev.PayloadRef] = struct{}{}
		}
	}
	refs := make([]string, 0, len(set))
	for r := range set {
		refs = append(refs, r)
	}
	sort.Strings(refs)
	return refs
}

func commitIndexRange(events []event.CommittedEvent) *[2]uint64 {
	if len(events) == 0 {
		return nil
	}
	min, max := events[0].CommitIndex, events[0].CommitIndex
	for _, ev := range events[1:] {
		if ev.CommitIndex < min {
			min = ev.CommitIndex
		}
		if ev.CommitIndex > max {
			max = ev.CommitIndex
		}
	}
	return &[2]uint64{min, max}
}
