// Package eventlog implements the Append Writer: the sole authority that
// assigns commit_index, enforces the line-size ceiling, detects source
// clock skew, and fsyncs Tier-A writes. It also implements the
// content-addressed BlobStore used for externalized payload bytes.
package eventlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/vifei-systems/vifei/internal/event"
)

// DefaultLineSizeCeiling is the default maximum canonical-line byte length
// (1 MiB), per the numeric policy.
const DefaultLineSizeCeiling = 1 << 20

// DefaultClockSkewToleranceNS is the default tolerance (50ms) below a
// source's timestamp high-water mark before skew is synthesized.
const DefaultClockSkewToleranceNS = 50_000_000

// AppendResult is returned by Append. DetectionEvents holds any events the
// writer synthesized immediately before CommittedEvent (currently only
// ClockSkewDetected can be synthesized), in commit order.
type AppendResult struct {
	DetectionEvents []event.CommittedEvent
	CommittedEvent  event.CommittedEvent
}

// AllCommitted returns DetectionEvents followed by CommittedEvent, i.e. the
// full ordered sequence this Append call advanced the log by.
func (r AppendResult) AllCommitted() []event.CommittedEvent {
	out := make([]event.CommittedEvent, 0, len(r.DetectionEvents)+1)
	out = append(out, r.DetectionEvents...)
	out = append(out, r.CommittedEvent)
	return out
}

// Writer is the Append Writer. It is not safe for concurrent use by more
// than one owner; callers are responsible for external serialization if a
// future caller needs concurrent access.
type Writer struct {
	f    *os.File
	path string

	nextIndex uint64

	lineSizeCeiling int
	skewTolerance   uint64

	highWaterBySource map[string]uint64
}

// Open opens (creating if absent) the log at path. If the file already has
// content, it is scanned line-by-line to recover the next commit_index and
// per-source timestamp high-water marks. A parse error on any existing
// line is fatal: the writer refuses to open a corrupted log rather than
// guess at recovery.
func Open(path string) (*Writer, error) {
	return OpenWithLimits(path, DefaultLineSizeCeiling, DefaultClockSkewToleranceNS)
}

// OpenWithLimits is Open with an explicit line-size ceiling and clock-skew
// tolerance, for tests and for EngineConfig-driven overrides.
func OpenWithLimits(path string, lineSizeCeiling int, skewToleranceNS uint64) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventlog: opening %s: %w", path, err)
	}

	w := &Writer{
		f:                   f,
		path:                path,
		lineSizeCeiling:     lineSizeCeiling,
		skewTolerance:       skewToleranceNS,
		highWaterBySource: map[string]uint64{},
	}

	if err := w.recover(); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.Seek(0, os.SEEK_END); err != nil {
		f.Close()
		return nil, fmt.Errorf("eventlog: seeking to end of %s: %w", path, err)
	}

	return w, nil
}

func (w *Writer) recover() error {
	scanner := bufio.NewScanner(w.f)
	scanner.Buffer(make([]byte, 64*1024), w.lineSizeCeiling+4096)

	maxIndex := int64(-1)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var committed event.CommittedEvent
		if err := json.Unmarshal(line, &committed); err != nil {
			return fmt.Errorf("eventlog: %s: corrupted at line %d: %w", w.path, lineNo, err)
		}
		if int64(committed.CommitIndex) > maxIndex {
			maxIndex = int64(committed.CommitIndex)
		}
		if hw, ok := w.highWaterBySource[committed.SourceID]; !ok || committed.TimestampNS > hw {
			w.highWaterBySource[committed.SourceID] = committed.TimestampNS
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("eventlog: %s: scanning: %w", w.path, err)
	}

	w.nextIndex = uint64(maxIndex + 1)
	return nil
}

// Append assigns the next commit_index (or indices, if a clock-skew
// detection event is synthesized first) and durably writes the resulting
// committed record(s). Tier-A records are fsynced before return; Tier-B/C
// are not.
func (w *Writer) Append(in event.ImportEvent) (AppendResult, error) {
	var detections []event.CommittedEvent

	if skew, ok := w.detectSkew(in); ok {
		committedSkew, err := w.writeOne(event.ImportEvent{
			RunID:       in.RunID,
			EventID:     in.EventID + "#skew",
			SourceID:    in.SourceID,
			TimestampNS: in.TimestampNS,
			Tier:        event.TierA,
			Payload:     skew,
			Synthesized: true,
		})
		if err != nil {
			return AppendResult{}, err
		}
		detections = append(detections, committedSkew)
	}

	committed, err := w.writeOne(in)
	if err != nil {
		return AppendResult{}, err
	}

	if hw, ok := w.highWaterBySource[in.SourceID]; !ok || in.TimestampNS > hw {
		w.highWaterBySource[in.SourceID] = in.TimestampNS
	}

	return AppendResult{DetectionEvents: detections, CommittedEvent: committed}, nil
}

func (w *Writer) detectSkew(in event.ImportEvent) (event.ClockSkewDetected, bool) {
	hw, ok := w.highWaterBySource[in.SourceID]
	if !ok {
		return event.ClockSkewDetected{}, false
	}
	if in.TimestampNS >= hw {
		return event.ClockSkewDetected{}, false
	}
	delta := hw - in.TimestampNS
	if delta <= w.skewTolerance {
		return event.ClockSkewDetected{}, false
	}
	return event.ClockSkewDetected{ExpectedNS: hw, ActualNS: in.TimestampNS, DeltaNS: delta}, true
}

func (w *Writer) writeOne(in event.ImportEvent) (event.CommittedEvent, error) {
	committed := in.WithCommitIndex(w.nextIndex)

	line, err := json.Marshal(committed)
	if err != nil {
		return event.CommittedEvent{}, fmt.Errorf("eventlog: marshaling event %s: %w", in.EventID, err)
	}
	if len(line) > w.lineSizeCeiling {
		return event.CommittedEvent{}, fmt.Errorf("eventlog: event %s: canonical line %d bytes exceeds ceiling %d: %w", in.EventID, len(line), w.lineSizeCeiling, ErrInvalidData)
	}

	line = append(line, '\n')
	if _, err := w.f.Write(line); err != nil {
		return event.CommittedEvent{}, fmt.Errorf("eventlog: writing event %s: %w", in.EventID, err)
	}

	if committed.Tier == event.TierA {
		if err := w.f.Sync(); err != nil {
			return event.CommittedEvent{}, fmt.Errorf("eventlog: fsyncing after event %s: %w", in.EventID, err)
		}
	}

	w.nextIndex++
	return committed, nil
}

// NextIndex returns the commit_index that would be assigned to the next
// appended event (ignoring any clock-skew synthesis that append might
// trigger first).
func (w *Writer) NextIndex() uint64 { return w.nextIndex }

// Close closes the underlying file.
func (w *Writer) Close() error { return w.f.Close() }

// ErrInvalidData marks a rejection due to a canonical line exceeding the
// configured size ceiling. It is never wrapped around a truncated write:
// oversize events are always rejected whole, never truncated.
var ErrInvalidData = fmt.Errorf("eventlog: invalid data")
