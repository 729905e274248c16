package event

import (
	"encoding/json"
	"fmt"
)

// EventPayload is the exported alias for the tagged-union marker interface.
// Collaborators outside this package construct variants (event.RunStart{},
// event.ToolCall{}, ...) and hand them to NewImportEvent; they never need to
// see the wire encoding.
type EventPayload = Payload

// ImportEvent is an event as presented to the Append Writer, before a
// commit_index has been assigned. The type intentionally has no
// commit_index field: ordering authority belongs to the log alone, and a
// struct that cannot hold a commit_index cannot be forged into claiming one.
type ImportEvent struct {
	RunID      string
	EventID    string
	SourceID   string
	SourceSeq  *uint64
	TimestampNS uint64
	Tier       Tier
	Payload    EventPayload
	PayloadRef *string
	Synthesized bool
}

// importEventWire mirrors ImportEvent with the canonical field order and
// JSON tags used for both directions of serialization.
type importEventWire struct {
	RunID       string          `json:"run_id"`
	EventID     string          `json:"event_id"`
	SourceID    string          `json:"source_id"`
	SourceSeq   *uint64         `json:"source_seq,omitempty"`
	TimestampNS uint64          `json:"timestamp_ns"`
	Tier        Tier            `json:"tier"`
	Payload     json.RawMessage `json:"payload"`
	PayloadRef  *string         `json:"payload_ref,omitempty"`
	Synthesized bool            `json:"synthesized,omitempty"`
}

// MarshalJSON emits fields in the declared canonical order: run_id,
// event_id, source_id, [source_seq], timestamp_ns, tier, payload,
// [payload_ref], [synthesized].
func (e ImportEvent) MarshalJSON() ([]byte, error) {
	payloadJSON, err := marshalPayload(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("event: marshaling ImportEvent %s: %w", e.EventID, err)
	}
	b := newObjectBuilder()
	b.field("run_id", e.RunID)
	b.field("event_id", e.EventID)
	b.field("source_id", e.SourceID)
	b.optional("source_seq", e.SourceSeq, e.SourceSeq != nil)
	b.field("timestamp_ns", e.TimestampNS)
	b.field("tier", e.Tier)
	b.raw("payload", json.RawMessage(payloadJSON), false)
	b.optional("payload_ref", e.PayloadRef, e.PayloadRef != nil)
	b.flag("synthesized", e.Synthesized)
	return b.bytes()
}

// UnmarshalJSON accepts the fields in any order, as required of a decoder.
func (e *ImportEvent) UnmarshalJSON(data []byte) error {
	var w importEventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("event: decoding ImportEvent: %w", err)
	}
	payload, err := unmarshalPayload(w.Payload)
	if err != nil {
		return fmt.Errorf("event: decoding ImportEvent payload: %w", err)
	}
	e.RunID = w.RunID
	e.EventID = w.EventID
	e.SourceID = w.SourceID
	e.SourceSeq = w.SourceSeq
	e.TimestampNS = w.TimestampNS
	e.Tier = w.Tier
	e.Payload = payload
	e.PayloadRef = w.PayloadRef
	e.Synthesized = w.Synthesized
	return nil
}

// CommittedEvent is an ImportEvent that the Append Writer has assigned a
// position in the global order. commit_index is assigned exactly once, by
// exactly one writer, and is never mutated after assignment; there is no
// setter on this type for a reason symmetric to ImportEvent's lack of a
// commit_index field.
type CommittedEvent struct {
	CommitIndex uint64
	ImportEvent
}

type committedEventWire struct {
	CommitIndex uint64          `json:"commit_index"`
	RunID       string          `json:"run_id"`
	EventID     string          `json:"event_id"`
	SourceID    string          `json:"source_id"`
	SourceSeq   *uint64         `json:"source_seq,omitempty"`
	TimestampNS uint64          `json:"timestamp_ns"`
	Tier        Tier            `json:"tier"`
	Payload     json.RawMessage `json:"payload"`
	PayloadRef  *string         `json:"payload_ref,omitempty"`
	Synthesized bool            `json:"synthesized,omitempty"`
}

// MarshalJSON puts commit_index first, ahead of every ImportEvent field, per
// the canonical field order for a committed record.
func (e CommittedEvent) MarshalJSON() ([]byte, error) {
	payloadJSON, err := marshalPayload(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("event: marshaling CommittedEvent %s: %w", e.EventID, err)
	}
	b := newObjectBuilder()
	b.field("commit_index", e.CommitIndex)
	b.field("run_id", e.RunID)
	b.field("event_id", e.EventID)
	b.field("source_id", e.SourceID)
	b.optional("source_seq", e.SourceSeq, e.SourceSeq != nil)
	b.field("timestamp_ns", e.TimestampNS)
	b.field("tier", e.Tier)
	b.raw("payload", json.RawMessage(payloadJSON), false)
	b.optional("payload_ref", e.PayloadRef, e.PayloadRef != nil)
	b.flag("synthesized", e.Synthesized)
	return b.bytes()
}

func (e *CommittedEvent) UnmarshalJSON(data []byte) error {
	var w committedEventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("event: decoding CommittedEvent: %w", err)
	}
	payload, err := unmarshalPayload(w.Payload)
	if err != nil {
		return fmt.Errorf("event: decoding CommittedEvent payload: %w", err)
	}
	e.CommitIndex = w.CommitIndex
	e.RunID = w.RunID
	e.EventID = w.EventID
	e.SourceID = w.SourceID
	e.SourceSeq = w.SourceSeq
	e.TimestampNS = w.TimestampNS
	e.Tier = w.Tier
	e.Payload = payload
	e.PayloadRef = w.PayloadRef
	e.Synthesized = w.Synthesized
	return nil
}

// WithCommitIndex produces the CommittedEvent for this ImportEvent at the
// given position. Only the Append Writer calls this; every other
// consumer of the log only ever reads CommittedEvent values back out.
func (e ImportEvent) WithCommitIndex(idx uint64) CommittedEvent {
	return CommittedEvent{CommitIndex: idx, ImportEvent: e}
}

// TypeName returns the payload's variant name, e.g. "RunStart".
func (e ImportEvent) TypeName() string {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.payloadType()
}

// IsTierA reports whether the event's payload variant is always Tier A by
// construction, independent of the Tier field asserted by the source. The
// reducer uses this to detect a source misclassifying an event's tier.
func (e ImportEvent) IsTierA() bool {
	name := e.TypeName()
	for _, n := range TierAEventTypeNames {
		if n == name {
			return true
		}
	}
	return false
}
