// Package importer turns third-party session recordings into ImportEvent
// sequences under a single shared contract: preserve source order exactly,
// never accept a source-supplied commit_index, reject unrecognized schema
// versions, and mark every synthesized field honestly.
package importer

import (
	"fmt"

	"github.com/vifei-systems/vifei/internal/event"
)

// ErrSourceCommitIndex and ErrSchemaMismatch are the two contract violations
// every importer must refuse rather than silently patch over.
var (
	ErrSourceCommitIndex = fmt.Errorf("source-supplied commit_index is rejected: commit_index is assigned only by the Append Writer")
)

// rejectSourceCommitIndex returns a non-nil error when the source record
// carried its own commit_index. Importers never accept ordering authority
// from the source.
func rejectSourceCommitIndex(commitIndex *uint64) error {
	if commitIndex != nil {
		return ErrSourceCommitIndex
	}
	return nil
}

// validateSchemaVersion returns a non-nil error when the record declares a
// schema_version that does not match expected. A record with no
// schema_version field at all is accepted (many real recordings predate the
// field).
func validateSchemaVersion(declared *string, expected string) error {
	if declared == nil {
		return nil
	}
	if *declared != expected {
		return fmt.Errorf("schema_version mismatch: got %q, expected %q", *declared, expected)
	}
	return nil
}

// contractErrorPayload builds the Tier A Error payload an importer emits in
// place of a normal mapping when a contract check fails.
func contractErrorPayload(message string) event.Error {
	severity := "error"
	return event.Error{Kind: "contract", Message: message, Severity: &severity}
}

// normalizeRunID returns the source's run id when present, else fallback,
// together with whether the value had to be synthesized.
func normalizeRunID(declared *string, fallback string) (string, bool) {
	if declared != nil && *declared != "" {
		return *declared, false
	}
	return fallback, true
}

// normalizeEventID returns the source's event id when present, else
// fallback, together with whether the value had to be synthesized.
func normalizeEventID(declared *string, fallback string) (string, bool) {
	if declared != nil && *declared != "" {
		return *declared, false
	}
	return fallback, true
}

// makeParseErrorEvent builds the Tier A Error event an importer emits for a
// line that could not be parsed at all (I/O failure or malformed JSON),
// rather than aborting the rest of the stream.
func makeParseErrorEvent(sourceID string, seq uint64, message string) event.ImportEvent {
	severity := "warning"
	return event.ImportEvent{
		RunID:       "unknown-session",
		EventID:     fmt.Sprintf("%s:%d", sourceID, seq),
		SourceID:    sourceID,
		SourceSeq:   uint64Ptr(seq),
		TimestampNS: 0,
		Tier:        event.TierA,
		Payload:     event.Error{Kind: "parse", Message: message, Severity: &severity},
		Synthesized: true,
	}
}

func uint64Ptr(v uint64) *uint64 { return &v }
