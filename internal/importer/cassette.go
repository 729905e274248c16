package importer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vifei-systems/vifei/internal/event"
)

// CassetteSourceID identifies events produced by the Agent Cassette
// importer.
const CassetteSourceID = "agent-cassette"

// CassetteSchemaVersion is the only schema_version this importer accepts
// when a recording declares one.
const CassetteSchemaVersion = "agent-cassette-v1"

// cassetteRecord mirrors every field any recognized Agent Cassette record
// type can carry. Unrecognized fields are ignored by encoding/json.
type cassetteRecord struct {
	Type          *string          `json:"type"`
	SchemaVersion *string          `json:"schema_version"`
	SessionID     *string          `json:"session_id"`
	ID            *string          `json:"id"`
	CommitIndex   *uint64          `json:"commit_index"`
	Timestamp     *string          `json:"timestamp"`
	Agent         *string          `json:"agent"`
	Model         *string          `json:"model"`
	Tool          *string          `json:"tool"`
	Args          *json.RawMessage `json:"args"`
	Result        *json.RawMessage `json:"result"`
	Status        *string          `json:"status"`
	ExitCode      *int32           `json:"exit_code"`
	Reason        *string          `json:"reason"`
	Kind          *string          `json:"kind"`
	Message       *string          `json:"message"`
	Severity      *string          `json:"severity"`
}

// ParseCassette reads an Agent Cassette JSONL session recording and maps it
// to ImportEvent values. Source order is preserved exactly: lines are never
// reordered, deduplicated, or resorted by timestamp. Malformed lines and
// contract violations become Error events rather than aborting the parse.
// Every event carries synthesized=true, since source_seq is always this
// importer's own invention (Agent Cassette has no native sequence field).
func ParseCassette(r io.Reader) []event.ImportEvent {
	var events []event.ImportEvent
	var seq uint64

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec cassetteRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			events = append(events, makeParseErrorEvent(CassetteSourceID, seq, fmt.Sprintf("malformed JSON at line %d: %v", lineNum, err)))
			seq++
			continue
		}

		events = append(events, mapCassetteRecord(&rec, seq, lineNum))
		seq++
	}

	return events
}

func mapCassetteRecord(rec *cassetteRecord, seq uint64, lineNum int) event.ImportEvent {
	recordType := "unknown"
	if rec.Type != nil {
		recordType = *rec.Type
	}

	runID, _ := normalizeRunID(rec.SessionID, "unknown-session")
	eventID, _ := normalizeEventID(rec.ID, fmt.Sprintf("cassette:%d", seq))
	timestampNS := parseISO8601NS(rec.Timestamp)

	if err := validateSchemaVersion(rec.SchemaVersion, CassetteSchemaVersion); err != nil {
		return event.ImportEvent{
			RunID: runID, EventID: eventID, SourceID: CassetteSourceID,
			SourceSeq: uint64Ptr(seq), TimestampNS: timestampNS, Tier: event.TierA,
			Payload: contractErrorPayload(err.Error()), Synthesized: true,
		}
	}
	if err := rejectSourceCommitIndex(rec.CommitIndex); err != nil {
		return event.ImportEvent{
			RunID: runID, EventID: eventID, SourceID: CassetteSourceID,
			SourceSeq: uint64Ptr(seq), TimestampNS: timestampNS, Tier: event.TierA,
			Payload: contractErrorPayload(err.Error()), Synthesized: true,
		}
	}

	payload, tier := mapCassettePayload(recordType, rec, seq, lineNum)

	return event.ImportEvent{
		RunID:       runID,
		EventID:     eventID,
		SourceID:    CassetteSourceID,
		SourceSeq:   uint64Ptr(seq),
		TimestampNS: timestampNS,
		Tier:        tier,
		Payload:     payload,
		Synthesized: true,
	}
}

func mapCassettePayload(recordType string, rec *cassetteRecord, seq uint64, lineNum int) (event.Payload, event.Tier) {
	switch recordType {
	case "session_start":
		agent := "unknown"
		if rec.Agent != nil {
			agent = *rec.Agent
		}
		var args *string
		if rec.Model != nil {
			a := fmt.Sprintf("model=%s", *rec.Model)
			args = &a
		}
		return event.RunStart{Agent: agent, Args: args}, event.TierA

	case "session_end":
		return event.RunEnd{ExitCode: rec.ExitCode, Reason: rec.Reason}, event.TierA

	case "tool_use":
		tool := "unknown"
		if rec.Tool != nil {
			tool = *rec.Tool
		}
		return event.ToolCall{Tool: tool, Args: rawJSONToString(rec.Args)}, event.TierA

	case "tool_result":
		tool := "unknown"
		if rec.Tool != nil {
			tool = *rec.Tool
		}
		return event.ToolResult{Tool: tool, Result: rawJSONToString(rec.Result), Status: rec.Status}, event.TierA

	case "error":
		kind := "unknown"
		if rec.Kind != nil {
			kind = *rec.Kind
		}
		message := ""
		if rec.Message != nil {
			message = *rec.Message
		}
		return event.Error{Kind: kind, Message: message, Severity: rec.Severity}, event.TierA

	default:
		data := map[string]string{
			"original_type": recordType,
			"line_number":   strconv.Itoa(lineNum),
			"source_seq":    strconv.FormatUint(seq, 10),
		}
		return event.Generic{EventType: recordType, Data: data}, event.TierB
	}
}

// rawJSONToString preserves source fidelity: a JSON string becomes its raw
// contents (no extra quoting), null becomes nil, everything else becomes its
// canonical JSON text with object keys sorted.
func rawJSONToString(raw *json.RawMessage) *string {
	if raw == nil {
		return nil
	}
	var asString string
	if err := json.Unmarshal(*raw, &asString); err == nil {
		return &asString
	}

	var asNull any
	if err := json.Unmarshal(*raw, &asNull); err == nil && asNull == nil {
		return nil
	}

	var generic any
	if err := json.Unmarshal(*raw, &generic); err != nil {
		s := string(*raw)
		return &s
	}
	rendered := renderCanonicalValue(generic)
	return &rendered
}

// renderCanonicalValue re-serializes a decoded JSON value with object keys
// sorted, matching the deterministic rendering the rest of this repository
// uses for any value tree embedded in text.
func renderCanonicalValue(v any) string {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			b.Write(kb)
			b.WriteByte(':')
			b.WriteString(renderCanonicalValue(t[k]))
		}
		b.WriteByte('}')
		return b.String()
	case []any:
		var b strings.Builder
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(renderCanonicalValue(e))
		}
		b.WriteByte(']')
		return b.String()
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// parseISO8601NS parses an ISO 8601 timestamp like
// "2026-02-16T10:00:00.000Z" to nanoseconds since the Unix epoch, falling
// back to 0 when absent or unparseable.
func parseISO8601NS(ts *string) uint64 {
	if ts == nil {
		return 0
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, *ts); err == nil {
			ns := t.UnixNano()
			if ns < 0 {
				return 0
			}
			return uint64(ns)
		}
	}
	return 0
}
