package state

import "encoding/json"

// canonicalBuilder is the minimal ordered-object writer state needs; it
// duplicates the shape of internal/event's objectBuilder rather than
// depending on that package, since state's canonical form has its own,
// unrelated field set and introducing a cross-package dependency purely
// for a tiny helper would be a heavier coupling than repeating ~20 lines.
type canonicalBuilder struct {
	parts []byte
	first bool
}

func newCanonicalBuilder() *canonicalBuilder {
	b := &canonicalBuilder{first: true}
	b.parts = append(b.parts, '{')
	return b
}

func (b *canonicalBuilder) field(key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if !b.first {
		b.parts = append(b.parts, ',')
	}
	b.first = false
	keyJSON, err := json.Marshal(key)
	if err != nil {
		return err
	}
	b.parts = append(b.parts, keyJSON...)
	b.parts = append(b.parts, ':')
	b.parts = append(b.parts, encoded...)
	return nil
}

func (b *canonicalBuilder) bytes() []byte {
	return append(b.parts, '}')
}

// orderedRuns/orderedTools/orderedCounts present AccumulatedState's maps as
// JSON objects with explicitly sorted keys, independent of whether a given
// encoding/json version happens to sort map keys (it does today, but the
// forensic canonical form must not depend on that being an implementation
// detail rather than a guarantee).

type orderedRuns struct {
	keys []string
	m    map[string]*RunInfo
}

func (o orderedRuns) MarshalJSON() ([]byte, error) {
	b := newCanonicalBuilder()
	for _, k := range o.keys {
		if err := b.field(k, o.m[k]); err != nil {
			return nil, err
		}
	}
	return b.bytes(), nil
}

type orderedTools struct {
	keys []string
	m    map[string]*ToolSummary
}

func (o orderedTools) MarshalJSON() ([]byte, error) {
	b := newCanonicalBuilder()
	for _, k := range o.keys {
		if err := b.field(k, o.m[k]); err != nil {
			return nil, err
		}
	}
	return b.bytes(), nil
}

type orderedCounts struct {
	keys []string
	m    map[string]uint64
}

func (o orderedCounts) MarshalJSON() ([]byte, error) {
	b := newCanonicalBuilder()
	for _, k := range o.keys {
		if err := b.field(k, o.m[k]); err != nil {
			return nil, err
		}
	}
	return b.bytes(), nil
}

// MarshalCanonical produces the deterministic byte sequence hashed into
// the state-hash and persisted in checkpoints: declared field order, every
// map rendered with explicitly sorted keys.
func MarshalCanonical(s *AccumulatedState) ([]byte, error) {
	b := newCanonicalBuilder()
	if err := b.field("runs", orderedRuns{keys: s.RunKeys(), m: s.Runs}); err != nil {
		return nil, err
	}
	if err := b.field("event_count_by_type", orderedCounts{keys: s.EventTypeKeys(), m: s.EventCountByType}); err != nil {
		return nil, err
	}
	if err := b.field("event_count_by_tier", orderedCounts{keys: s.EventTierKeys(), m: s.EventCountByTier}); err != nil {
		return nil, err
	}
	if err := b.field("tools", orderedTools{keys: s.ToolKeys(), m: s.Tools}); err != nil {
		return nil, err
	}
	if err := b.field("policy_decisions", s.PolicyDecisions); err != nil {
		return nil, err
	}
	if err := b.field("error_log", s.ErrorLog); err != nil {
		return nil, err
	}
	if err := b.field("clock_skew_log", s.ClockSkewLog); err != nil {
		return nil, err
	}
	if err := b.field("redaction_log", s.RedactionLog); err != nil {
		return nil, err
	}
	if s.LastCommitIndex != nil {
		if err := b.field("last_commit_index", *s.LastCommitIndex); err != nil {
			return nil, err
		}
	}
	if err := b.field("tier_a_count", s.TierACount); err != nil {
		return nil, err
	}
	if err := b.field("tier_a_drops", s.TierADrops); err != nil {
		return nil, err
	}
	return b.bytes(), nil
}
