// Package state implements the Reducer: a pure fold of CommittedEvents into
// AccumulatedState, plus checkpoint persistence and replay with resume
// equivalence.
package state

import (
	"sort"

	"github.com/vifei-systems/vifei/internal/event"
)

// ReducerVersion is embedded into every state-hash input so a change to
// the fold's logic produces a visibly different hash for the same input
// stream.
const ReducerVersion = "reducer-v0.1"

// RunInfo is the per-run metadata tracked by the reducer.
type RunInfo struct {
	Agent      string  `json:"agent,omitempty"`
	Args       *string `json:"args,omitempty"`
	Ended      bool    `json:"ended,omitempty"`
	ExitCode   *int32  `json:"exit_code,omitempty"`
	Reason     *string `json:"reason,omitempty"`
	EventCount uint64  `json:"event_count"`
}

// ToolSummary is the per-tool counter set tracked by the reducer.
type ToolSummary struct {
	CallCount    uint64 `json:"call_count"`
	ResultCount  uint64 `json:"result_count"`
	SuccessCount uint64 `json:"success_count"`
	ErrorCount   uint64 `json:"error_count"`
}

// PolicyTransition is one recorded PolicyDecision.
type PolicyTransition struct {
	CommitIndex        uint64 `json:"commit_index"`
	FromLevel          string `json:"from_level"`
	ToLevel            string `json:"to_level"`
	Trigger            string `json:"trigger"`
	QueuePressureFixed int64  `json:"queue_pressure_fixed"`
}

// ErrorRecord is one recorded Error event.
type ErrorRecord struct {
	CommitIndex uint64  `json:"commit_index"`
	Kind        string  `json:"kind"`
	Message     string  `json:"message"`
	Severity    *string `json:"severity,omitempty"`
}

// ClockSkewRecord is one recorded ClockSkewDetected event.
type ClockSkewRecord struct {
	CommitIndex uint64 `json:"commit_index"`
	ExpectedNS  uint64 `json:"expected_ns"`
	ActualNS    uint64 `json:"actual_ns"`
	DeltaNS     uint64 `json:"delta_ns"`
}

// RedactionRecord is one recorded RedactionApplied event.
type RedactionRecord struct {
	CommitIndex   uint64 `json:"commit_index"`
	TargetEventID string `json:"target_event_id"`
	FieldPath     string `json:"field_path"`
	Reason        string `json:"reason"`
}

// AccumulatedState is the output of reduction. Every map field is
// serialized in sorted-key order (see MarshalJSON) regardless of Go map
// iteration order.
type AccumulatedState struct {
	Runs             map[string]*RunInfo     `json:"runs"`
	EventCountByType map[string]uint64       `json:"event_count_by_type"`
	EventCountByTier map[string]uint64       `json:"event_count_by_tier"`
	Tools            map[string]*ToolSummary `json:"tools"`

	PolicyDecisions []PolicyTransition `json:"policy_decisions"`
	ErrorLog        []ErrorRecord      `json:"error_log"`
	ClockSkewLog    []ClockSkewRecord  `json:"clock_skew_log"`
	RedactionLog    []RedactionRecord  `json:"redaction_log"`

	LastCommitIndex *uint64 `json:"last_commit_index,omitempty"`
	TierACount      uint64  `json:"tier_a_count"`
	TierADrops      uint64  `json:"tier_a_drops"`
}

// New returns an empty AccumulatedState ready for folding.
func New() *AccumulatedState {
	return &AccumulatedState{
		Runs:             map[string]*RunInfo{},
		EventCountByType: map[string]uint64{},
		EventCountByTier: map[string]uint64{},
		Tools:            map[string]*ToolSummary{},
	}
}

// Clone returns a deep copy, used by the pure (non-in-place) Reduce
// variant so the caller's original state is never mutated.
func (s *AccumulatedState) Clone() *AccumulatedState {
	c := New()
	for k, v := range s.Runs {
		cp := *v
		c.Runs[k] = &cp
	}
	for k, v := range s.EventCountByType {
		c.EventCountByType[k] = v
	}
	for k, v := range s.EventCountByTier {
		c.EventCountByTier[k] = v
	}
	for k, v := range s.Tools {
		cp := *v
		c.Tools[k] = &cp
	}
	c.PolicyDecisions = append([]PolicyTransition(nil), s.PolicyDecisions...)
	c.ErrorLog = append([]ErrorRecord(nil), s.ErrorLog...)
	c.ClockSkewLog = append([]ClockSkewRecord(nil), s.ClockSkewLog...)
	c.RedactionLog = append([]RedactionRecord(nil), s.RedactionLog...)
	if s.LastCommitIndex != nil {
		idx := *s.LastCommitIndex
		c.LastCommitIndex = &idx
	}
	c.TierACount = s.TierACount
	c.TierADrops = s.TierADrops
	return c
}

// sortedKeys returns the keys of a string-keyed map in sorted order, the
// iteration order every consumer of AccumulatedState's maps must use.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RunKeys returns the Runs map's keys in sorted order.
func (s *AccumulatedState) RunKeys() []string { return sortedKeys(s.Runs) }

// ToolKeys returns the Tools map's keys in sorted order.
func (s *AccumulatedState) ToolKeys() []string { return sortedKeys(s.Tools) }

// EventTypeKeys returns the EventCountByType map's keys in sorted order.
func (s *AccumulatedState) EventTypeKeys() []string { return sortedKeys(s.EventCountByType) }

// EventTierKeys returns the EventCountByTier map's keys in sorted order.
func (s *AccumulatedState) EventTierKeys() []string { return sortedKeys(s.EventCountByTier) }

// tierAName reports whether name is one of the eight Tier-A payload variant
// names, and so belongs in tier_a_summaries.
func isTierAName(name string) bool {
	for _, n := range event.TierAEventTypeNames {
		if n == name {
			return true
		}
	}
	return false
}
