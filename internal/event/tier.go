// Package event defines the canonical event schema for the Vifei EventLog:
// the Tier classification, the nine-variant payload union, and the two-type
// ImportEvent / CommittedEvent pattern that enforces commit_index ownership
// at compile time.
package event

import (
	"encoding/json"
	"fmt"
)

// Tier is the lossless/loss policy class of an event.
//
// A is never dropped and never reordered. B may be sampled or aggregated
// under pressure. C is best-effort. Ordering is A > B > C.
type Tier int

const (
	// TierA events are lossless forensic truth. Never dropped.
	TierA Tier = iota
	// TierB events may be sampled or aggregated under backpressure.
	TierB
	// TierC events are best-effort telemetry.
	TierC
)

// String returns the single-uppercase-letter serialization of the tier.
func (t Tier) String() string {
	switch t {
	case TierA:
		return "A"
	case TierB:
		return "B"
	case TierC:
		return "C"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Less reports whether t is a lower-priority tier than other (A < B < C in
// drop-worthiness, i.e. TierA.Less(TierB) is true since A sorts first).
func (t Tier) Less(other Tier) bool { return t < other }

// ParseTier parses the single-letter serialization back into a Tier.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "A":
		return TierA, nil
	case "B":
		return TierB, nil
	case "C":
		return TierC, nil
	default:
		return 0, fmt.Errorf("event: invalid tier %q", s)
	}
}

// MarshalJSON implements json.Marshaler, emitting the single-letter form.
func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler, parsing the single-letter form.
func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TierAEventTypeNames lists the payload variant names classified as Tier A,
// in the order §4.5 of the projection contract expects them to be checked.
var TierAEventTypeNames = []string{
	"RunStart", "RunEnd", "ToolCall", "ToolResult",
	"PolicyDecision", "RedactionApplied", "Error", "ClockSkewDetected",
}
