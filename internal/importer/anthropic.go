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

// AnthropicMessagesSourceID identifies events produced by the Anthropic
// Messages importer.
const AnthropicMessagesSourceID = "anthropic-messages"

// AnthropicMessagesSchemaVersion is the only schema_version this importer
// accepts when a recording declares one.
const AnthropicMessagesSchemaVersion = "anthropic-messages-v1"

type anthropicRecord struct {
	Type          *string          `json:"type"`
	SchemaVersion *string          `json:"schema_version"`
	CommitIndex   *uint64          `json:"commit_index"`
	RunID         *string          `json:"run_id"`
	SessionID     *string          `json:"session_id"`
	MessageID     *string          `json:"message_id"`
	EventID       *string          `json:"event_id"`
	TimestampNS   *uint64          `json:"timestamp_ns"`
	CreatedAtMS   *uint64          `json:"created_at_ms"`
	Model         *string          `json:"model"`
	Status        *string          `json:"status"`
	StopReason    *string          `json:"stop_reason"`
	Error         *json.RawMessage `json:"error"`
	ContentBlock  *anthropicBlock  `json:"content_block"`
	Delta         *anthropicBlock  `json:"delta"`
}

type anthropicBlock struct {
	Type  string           `json:"type"`
	Name  *string          `json:"name"`
	Input *json.RawMessage `json:"input"`
	Text  *string          `json:"text"`
}

// ParseAnthropicMessages reads an Anthropic Messages-API JSONL recording and
// maps it to ImportEvent values under the same contract ParseCassette
// follows.
func ParseAnthropicMessages(r io.Reader) []event.ImportEvent {
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

		var rec anthropicRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			events = append(events, makeParseErrorEvent(AnthropicMessagesSourceID, seq, fmt.Sprintf("malformed JSON at line %d: %v", lineNum, err)))
			seq++
			continue
		}

		events = append(events, mapAnthropicRecord(&rec, seq, lineNum))
		seq++
	}

	return events
}

func mapAnthropicRecord(rec *anthropicRecord, seq uint64, lineNum int) event.ImportEvent {
	fallbackRunID := "unknown-anthropic-run"
	if rec.MessageID != nil {
		fallbackRunID = *rec.MessageID
	}
	runIDCandidate := rec.RunID
	if runIDCandidate == nil {
		runIDCandidate = rec.SessionID
	}
	if runIDCandidate == nil {
		runIDCandidate = rec.MessageID
	}
	runID, _ := normalizeRunID(runIDCandidate, fallbackRunID)

	eventIDCandidate := rec.EventID
	if eventIDCandidate == nil {
		eventIDCandidate = rec.MessageID
	}
	eventID, _ := normalizeEventID(eventIDCandidate, fmt.Sprintf("anthropic:%d", seq))

	var timestampNS uint64
	switch {
	case rec.TimestampNS != nil:
		timestampNS = *rec.TimestampNS
	case rec.CreatedAtMS != nil:
		timestampNS = *rec.CreatedAtMS * 1_000_000
	}

	if err := validateSchemaVersion(rec.SchemaVersion, AnthropicMessagesSchemaVersion); err != nil {
		return asAnthropicEvent(runID, eventID, seq, timestampNS, event.TierA, contractErrorPayload(err.Error()))
	}
	if err := rejectSourceCommitIndex(rec.CommitIndex); err != nil {
		return asAnthropicEvent(runID, eventID, seq, timestampNS, event.TierA, contractErrorPayload(err.Error()))
	}

	eventType := "unknown"
	if rec.Type != nil {
		eventType = *rec.Type
	}
	payload, tier := mapAnthropicPayload(eventType, rec, lineNum)
	return asAnthropicEvent(runID, eventID, seq, timestampNS, tier, payload)
}

func mapAnthropicPayload(eventType string, rec *anthropicRecord, lineNum int) (event.Payload, event.Tier) {
	switch eventType {
	case "message_start", "message.created":
		var args *string
		if rec.Model != nil {
			a := fmt.Sprintf("model=%s", *rec.Model)
			args = &a
		}
		return event.RunStart{Agent: "anthropic-messages", Args: args}, event.TierA

	case "message_stop", "message.completed":
		reason := rec.StopReason
		if reason == nil {
			reason = rec.Status
		}
		exitCode := int32(0)
		return event.RunEnd{ExitCode: &exitCode, Reason: reason}, event.TierA

	case "error", "message.error":
		rendered := ""
		if rec.Error != nil {
			rendered = string(*rec.Error)
		}
		severity := "error"
		return event.Error{Kind: "provider", Message: rendered, Severity: &severity}, event.TierA

	default:
		if payload, tier, ok := mapAnthropicBlock(rec.ContentBlock); ok {
			return payload, tier
		}
		if payload, tier, ok := mapAnthropicBlock(rec.Delta); ok {
			return payload, tier
		}
		data := map[string]string{
			"event_type":  eventType,
			"line_number": strconv.Itoa(lineNum),
		}
		return event.Generic{EventType: eventType, Data: data}, event.TierB
	}
}

func mapAnthropicBlock(block *anthropicBlock) (event.Payload, event.Tier, bool) {
	if block == nil {
		return nil, 0, false
	}
	tool := "unknown"
	if block.Name != nil {
		tool = *block.Name
	}
	switch block.Type {
	case "tool_use":
		return event.ToolCall{Tool: tool, Args: rawJSONToString(block.Input)}, event.TierA, true
	case "tool_result":
		return event.ToolResult{Tool: tool, Result: block.Text}, event.TierA, true
	default:
		return nil, 0, false
	}
}

func asAnthropicEvent(runID, eventID string, seq uint64, timestampNS uint64, tier event.Tier, payload event.Payload) event.ImportEvent {
	return event.ImportEvent{
		RunID: runID, EventID: eventID, SourceID: AnthropicMessagesSourceID,
		SourceSeq: uint64Ptr(seq), TimestampNS: timestampNS, Tier: tier,
		Payload: payload, Synthesized: true,
	}
}
