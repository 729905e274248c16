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

// CohereTranslateSourceID identifies events produced by the Cohere
// Translate importer.
const CohereTranslateSourceID = "cohere-translate"

// CohereTranslateSchemaVersion is the only schema_version this importer
// accepts when a recording declares one.
const CohereTranslateSchemaVersion = "cohere-translate-v1"

type cohereRecord struct {
	Type           *string  `json:"type"`
	SchemaVersion  *string  `json:"schema_version"`
	CommitIndex    *uint64  `json:"commit_index"`
	RunID          *string  `json:"run_id"`
	RequestID      *string  `json:"request_id"`
	EventID        *string  `json:"event_id"`
	TimestampNS    *uint64  `json:"timestamp_ns"`
	CreatedAtMS    *uint64  `json:"created_at_ms"`
	Model          *string  `json:"model"`
	SourceLang     *string  `json:"source_lang"`
	TargetLang     *string  `json:"target_lang"`
	SourceText     *string  `json:"source_text"`
	TranslatedText *string  `json:"translated_text"`
	Policy         *string  `json:"policy"`
	PolicyReason   *string  `json:"policy_reason"`
	Status         *string  `json:"status"`
	Error          *string  `json:"error"`
	QueuePressure  *float64 `json:"queue_pressure"`
}

// ParseCohereTranslate reads a Cohere Translate JSONL recording and maps it
// to ImportEvent values under the same contract ParseCassette follows.
func ParseCohereTranslate(r io.Reader) []event.ImportEvent {
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

		var rec cohereRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			events = append(events, makeParseErrorEvent(CohereTranslateSourceID, seq, fmt.Sprintf("malformed JSON at line %d: %v", lineNum, err)))
			seq++
			continue
		}

		events = append(events, mapCohereRecord(&rec, seq, lineNum))
		seq++
	}

	return events
}

func mapCohereRecord(rec *cohereRecord, seq uint64, lineNum int) event.ImportEvent {
	fallbackRunID := "unknown-translate-run"
	if rec.RequestID != nil {
		fallbackRunID = *rec.RequestID
	}
	runIDCandidate := rec.RunID
	if runIDCandidate == nil {
		runIDCandidate = rec.RequestID
	}
	runID, _ := normalizeRunID(runIDCandidate, fallbackRunID)
	eventID, _ := normalizeEventID(rec.EventID, fmt.Sprintf("cohere:%d", seq))

	var timestampNS uint64
	switch {
	case rec.TimestampNS != nil:
		timestampNS = *rec.TimestampNS
	case rec.CreatedAtMS != nil:
		timestampNS = *rec.CreatedAtMS * 1_000_000
	}

	if err := validateSchemaVersion(rec.SchemaVersion, CohereTranslateSchemaVersion); err != nil {
		return asCohereEvent(runID, eventID, seq, timestampNS, event.TierA, contractErrorPayload(err.Error()))
	}
	if err := rejectSourceCommitIndex(rec.CommitIndex); err != nil {
		return asCohereEvent(runID, eventID, seq, timestampNS, event.TierA, contractErrorPayload(err.Error()))
	}

	eventType := "unknown"
	if rec.Type != nil {
		eventType = *rec.Type
	}
	payload, tier := mapCoherePayload(eventType, rec, lineNum)
	return asCohereEvent(runID, eventID, seq, timestampNS, tier, payload)
}

func mapCoherePayload(eventType string, rec *cohereRecord, lineNum int) (event.Payload, event.Tier) {
	switch eventType {
	case "translation.request":
		var parts []string
		if rec.Model != nil {
			parts = append(parts, fmt.Sprintf("model=%s", *rec.Model))
		}
		if rec.SourceLang != nil {
			parts = append(parts, fmt.Sprintf("source_lang=%s", *rec.SourceLang))
		}
		if rec.TargetLang != nil {
			parts = append(parts, fmt.Sprintf("target_lang=%s", *rec.TargetLang))
		}
		if rec.SourceText != nil {
			parts = append(parts, fmt.Sprintf("source_len=%d", len(*rec.SourceText)))
		}
		var args *string
		if len(parts) > 0 {
			a := strings.Join(parts, ",")
			args = &a
		}
		return event.RunStart{Agent: "cohere-translate", Args: args}, event.TierA

	case "translation.result":
		status := "success"
		return event.ToolResult{Tool: "translate", Result: rec.TranslatedText, Status: &status}, event.TierA

	case "translation.policy":
		trigger := "translation_policy"
		if rec.PolicyReason != nil {
			trigger = *rec.PolicyReason
		} else if rec.Policy != nil {
			trigger = *rec.Policy
		}
		queuePressure := 0.0
		if rec.QueuePressure != nil {
			queuePressure = *rec.QueuePressure
		}
		return event.PolicyDecision{FromLevel: "L0", ToLevel: "L0", Trigger: trigger, QueuePressure: queuePressure}, event.TierA

	case "translation.error":
		message := ""
		if rec.Error != nil {
			message = *rec.Error
		}
		severity := "error"
		return event.Error{Kind: "provider", Message: message, Severity: &severity}, event.TierA

	default:
		data := map[string]string{
			"event_type":  eventType,
			"line_number": strconv.Itoa(lineNum),
		}
		return event.Generic{EventType: eventType, Data: data}, event.TierB
	}
}

func asCohereEvent(runID, eventID string, seq uint64, timestampNS uint64, tier event.Tier, payload event.Payload) event.ImportEvent {
	return event.ImportEvent{
		RunID: runID, EventID: eventID, SourceID: CohereTranslateSourceID,
		SourceSeq: uint64Ptr(seq), TimestampNS: timestampNS, Tier: tier,
		Payload: payload, Synthesized: true,
	}
}
