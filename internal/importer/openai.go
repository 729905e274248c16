package importer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vifei-systems/vifei/internal/event"
)

// OpenAIResponsesSourceID identifies events produced by the OpenAI
// Responses importer.
const OpenAIResponsesSourceID = "openai-responses"

// OpenAIResponsesSchemaVersion is the only schema_version this importer
// accepts when a recording declares one.
const OpenAIResponsesSchemaVersion = "openai-responses-v1"

type openAIRecord struct {
	Type          *string          `json:"type"`
	SchemaVersion *string          `json:"schema_version"`
	CommitIndex   *uint64          `json:"commit_index"`
	RunID         *string          `json:"run_id"`
	ResponseID    *string          `json:"response_id"`
	EventID       *string          `json:"event_id"`
	TimestampNS   *uint64          `json:"timestamp_ns"`
	CreatedAtMS   *uint64          `json:"created_at_ms"`
	Model         *string          `json:"model"`
	Status        *string          `json:"status"`
	Error         *json.RawMessage `json:"error"`
	Item          *openAIItem      `json:"item"`
}

type openAIItem struct {
	Type      string           `json:"type"`
	Name      *string          `json:"name"`
	Arguments *json.RawMessage `json:"arguments"`
	Output    *json.RawMessage `json:"output"`
}

// ParseOpenAIResponses reads an OpenAI Responses-API JSONL recording and
// maps it to ImportEvent values under the same contract ParseCassette
// follows: source order preserved exactly, source commit_index rejected,
// schema mismatches and malformed lines folded into Error events. Only the
// event families with forensic value (response lifecycle, tool calls and
// their outputs, provider errors) are mapped to named payloads; everything
// else becomes Generic.
func ParseOpenAIResponses(r io.Reader) []event.ImportEvent {
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

		var rec openAIRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			events = append(events, makeParseErrorEvent(OpenAIResponsesSourceID, seq, fmt.Sprintf("malformed JSON at line %d: %v", lineNum, err)))
			seq++
			continue
		}

		events = append(events, mapOpenAIRecord(&rec, seq, lineNum))
		seq++
	}

	return events
}

func mapOpenAIRecord(rec *openAIRecord, seq uint64, lineNum int) event.ImportEvent {
	fallbackRunID := "unknown-response-run"
	if rec.ResponseID != nil {
		fallbackRunID = *rec.ResponseID
	}
	runIDCandidate := rec.RunID
	if runIDCandidate == nil {
		runIDCandidate = rec.ResponseID
	}
	runID, _ := normalizeRunID(runIDCandidate, fallbackRunID)

	eventIDCandidate := rec.EventID
	if eventIDCandidate == nil && rec.Item != nil && rec.Item.Name != nil {
		eventIDCandidate = rec.Item.Name
	}
	eventID, _ := normalizeEventID(eventIDCandidate, fmt.Sprintf("openai:%d", seq))

	var timestampNS uint64
	switch {
	case rec.TimestampNS != nil:
		timestampNS = *rec.TimestampNS
	case rec.CreatedAtMS != nil:
		timestampNS = *rec.CreatedAtMS * 1_000_000
	}

	if err := validateSchemaVersion(rec.SchemaVersion, OpenAIResponsesSchemaVersion); err != nil {
		return asOpenAIEvent(runID, eventID, seq, timestampNS, event.TierA, contractErrorPayload(err.Error()))
	}
	if err := rejectSourceCommitIndex(rec.CommitIndex); err != nil {
		return asOpenAIEvent(runID, eventID, seq, timestampNS, event.TierA, contractErrorPayload(err.Error()))
	}

	eventType := "unknown"
	if rec.Type != nil {
		eventType = *rec.Type
	}
	payload, tier := mapOpenAIPayload(eventType, rec, lineNum)
	return asOpenAIEvent(runID, eventID, seq, timestampNS, tier, payload)
}

func mapOpenAIPayload(eventType string, rec *openAIRecord, lineNum int) (event.Payload, event.Tier) {
	switch eventType {
	case "response.created":
		var args *string
		if rec.Model != nil {
			a := fmt.Sprintf("model=%s", *rec.Model)
			args = &a
		}
		return event.RunStart{Agent: "openai-responses", Args: args}, event.TierA

	case "response.completed":
		exitCode := int32(0)
		return event.RunEnd{ExitCode: &exitCode, Reason: rec.Status}, event.TierA

	case "response.error":
		rendered := ""
		if rec.Error != nil {
			rendered = string(*rec.Error)
		}
		severity := "error"
		return event.Error{Kind: "provider", Message: rendered, Severity: &severity}, event.TierA

	default:
		if payload, tier, ok := mapOpenAIItem(rec.Item); ok {
			return payload, tier
		}
		data := map[string]string{
			"event_type":  eventType,
			"line_number": strconv.Itoa(lineNum),
		}
		return event.Generic{EventType: eventType, Data: data}, event.TierB
	}
}

func mapOpenAIItem(item *openAIItem) (event.Payload, event.Tier, bool) {
	if item == nil {
		return nil, 0, false
	}
	tool := "unknown"
	if item.Name != nil {
		tool = *item.Name
	}
	switch item.Type {
	case "function_call":
		return event.ToolCall{Tool: tool, Args: rawJSONToString(item.Arguments)}, event.TierA, true
	case "function_call_output":
		return event.ToolResult{Tool: tool, Result: rawJSONToString(item.Output)}, event.TierA, true
	default:
		return nil, 0, false
	}
}

func asOpenAIEvent(runID, eventID string, seq uint64, timestampNS uint64, tier event.Tier, payload event.Payload) event.ImportEvent {
	return event.ImportEvent{
		RunID: runID, EventID: eventID, SourceID: OpenAIResponsesSourceID,
		SourceSeq: uint64Ptr(seq), TimestampNS: timestampNS, Tier: tier,
		Payload: payload, Synthesized: true,
	}
}
