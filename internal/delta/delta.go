// Package delta implements the Delta Engine: a deterministic,
// commit_index-keyed pairwise diff between two committed event streams.
package delta

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/vifei-systems/vifei/internal/event"
)

// ChangeClass is the kind of divergence a Record describes.
type ChangeClass string

const (
	EventMissingLeft  ChangeClass = "EventMissingLeft"
	EventMissingRight ChangeClass = "EventMissingRight"
	ValueMismatch     ChangeClass = "ValueMismatch"
)

// Record is one divergence between the left and right streams.
type Record struct {
	CommitIndex uint64      `json:"commit_index"`
	JSONPath    string      `json:"json_path"`
	ChangeClass ChangeClass `json:"change_class"`
	LeftValue   *string     `json:"left_value,omitempty"`
	RightValue  *string     `json:"right_value,omitempty"`
}

// RunDelta is the full divergence report between two streams.
type RunDelta struct {
	Records []Record `json:"records"`
}

// DiffRuns computes the deterministic divergence between left and right.
// Events are joined by commit_index, never by timestamp or event_id.
func DiffRuns(left, right []event.CommittedEvent) (RunDelta, error) {
	leftByIdx, err := dedupeByCommitIndex(left)
	if err != nil {
		return RunDelta{}, err
	}
	rightByIdx, err := dedupeByCommitIndex(right)
	if err != nil {
		return RunDelta{}, err
	}

	indexSet := map[uint64]struct{}{}
	for idx := range leftByIdx {
		indexSet[idx] = struct{}{}
	}
	for idx := range rightByIdx {
		indexSet[idx] = struct{}{}
	}
	indices := make([]uint64, 0, len(indexSet))
	for idx := range indexSet {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	var records []Record
	for _, idx := range indices {
		l, lok := leftByIdx[idx]
		r, rok := rightByIdx[idx]
		switch {
		case lok && !rok:
			records = append(records, Record{CommitIndex: idx, JSONPath: "$", ChangeClass: EventMissingRight})
		case !lok && rok:
			records = append(records, Record{CommitIndex: idx, JSONPath: "$", ChangeClass: EventMissingLeft})
		default:
			diffs, err := diffPayloads(idx, l, r)
			if err != nil {
				return RunDelta{}, err
			}
			records = append(records, diffs...)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CommitIndex != records[j].CommitIndex {
			return records[i].CommitIndex < records[j].CommitIndex
		}
		return records[i].JSONPath < records[j].JSONPath
	})

	return RunDelta{Records: records}, nil
}

func diffPayloads(idx uint64, l, r event.CommittedEvent) ([]Record, error) {
	leftTree, err := toValueTree(l)
	if err != nil {
		return nil, err
	}
	rightTree, err := toValueTree(r)
	if err != nil {
		return nil, err
	}

	leftFlat := map[string]string{}
	flatten("$", leftTree, leftFlat)
	rightFlat := map[string]string{}
	flatten("$", rightTree, rightFlat)

	pathSet := map[string]struct{}{}
	for p := range leftFlat {
		pathSet[p] = struct{}{}
	}
	for p := range rightFlat {
		pathSet[p] = struct{}{}
	}
	paths := make([]string, 0, len(pathSet))
	for p := range pathSet {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []Record
	for _, p := range paths {
		lv, lok := leftFlat[p]
		rv, rok := rightFlat[p]
		if lok && rok && lv == rv {
			continue
		}
		rec := Record{CommitIndex: idx, JSONPath: p, ChangeClass: ValueMismatch}
		if lok {
			rec.LeftValue = strPtr(lv)
		}
		if rok {
			rec.RightValue = strPtr(rv)
		}
		out = append(out, rec)
	}
	return out, nil
}

// toValueTree re-marshals the event's canonical form into a generic
// json.Unmarshal target so the flattening walk below can treat it
// uniformly as maps/slices/scalars regardless of the static struct shape.
func toValueTree(ev event.CommittedEvent) (any, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("delta: canonicalizing event for diff: %w", err)
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("delta: decoding canonical event for diff: %w", err)
	}
	return tree, nil
}

// flatten walks a decoded JSON value tree into path -> leaf-string pairs.
// Objects sort keys; arrays index numerically.
func flatten(prefix string, v any, out map[string]string) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(fmt.Sprintf("%s.%s", prefix, k), val[k], out)
		}
	case []any:
		for i, elem := range val {
			flatten(fmt.Sprintf("%s[%d]", prefix, i), elem, out)
		}
	case nil:
		out[prefix] = "null"
	default:
		b, _ := json.Marshal(val)
		out[prefix] = string(b)
	}
}

// dedupeByCommitIndex groups events by commit_index, applying the
// defensive tie-break when duplicates are present: keep whichever event's
// canonical serialization sorts lowest on the fixed tuple (run_id,
// event_id, source_id, source_seq, timestamp_ns, tier, payload_ref,
// synthesized, canonical payload bytes).
func dedupeByCommitIndex(events []event.CommittedEvent) (map[uint64]event.CommittedEvent, error) {
	out := map[uint64]event.CommittedEvent{}
	for _, ev := range events {
		existing, ok := out[ev.CommitIndex]
		if !ok {
			out[ev.CommitIndex] = ev
			continue
		}
		winner, err := tieBreakWinner(existing, ev)
		if err != nil {
			return nil, err
		}
		out[ev.CommitIndex] = winner
	}
	return out, nil
}

func tieBreakWinner(a, b event.CommittedEvent) (event.CommittedEvent, error) {
	keyA, err := tieBreakKey(a)
	if err != nil {
		return event.CommittedEvent{}, err
	}
	keyB, err := tieBreakKey(b)
	if err != nil {
		return event.CommittedEvent{}, err
	}
	if keyB < keyA {
		return b, nil
	}
	return a, nil
}

func tieBreakKey(ev event.CommittedEvent) (string, error) {
	payloadJSON, err := json.Marshal(ev.Payload)
	if err != nil {
		return "", fmt.Errorf("delta: canonicalizing payload for tie-break: %w", err)
	}
	var sourceSeq uint64
	if ev.SourceSeq != nil {
		sourceSeq = *ev.SourceSeq
	}
	var payloadRef string
	if ev.PayloadRef != nil {
		payloadRef = *ev.PayloadRef
	}
	return fmt.Sprintf("%s\x00%s\x00%s\x00%020d\x00%020d\x00%s\x00%s\x00%t\x00%s",
		ev.RunID, ev.EventID, ev.SourceID, sourceSeq, ev.TimestampNS, ev.Tier.String(), payloadRef, ev.Synthesized, string(payloadJSON)), nil
}

func strPtr(s string) *string { return &s }
