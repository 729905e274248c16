package projection

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/vifei-systems/vifei/internal/hashing"
	"github.com/vifei-systems/vifei/internal/state"
)

func marshalString(s string) ([]byte, error) {
	return json.Marshal(s)
}

// ExportSafetyState is projected as UNKNOWN always; the export pipeline
// alone is authorized to report SCANNING/BUNDLED/REFUSED, since only it
// has run the secret scanner.
type ExportSafetyState string

const (
	ExportSafetyUnknown ExportSafetyState = "UNKNOWN"
	ExportSafetyClean   ExportSafetyState = "CLEAN"
	ExportSafetyDirty   ExportSafetyState = "DIRTY"
	ExportSafetyRefused ExportSafetyState = "REFUSED"
)

// Invariants pins the projection to a versioned rule set and the caller's
// chosen degradation level.
type Invariants struct {
	Version          string
	DegradationLevel LadderLevel
}

// ViewModel is the hashable output of projection.
type ViewModel struct {
	TierASummaries             map[string]uint64 `json:"tier_a_summaries"`
	AggregationMode            string            `json:"aggregation_mode"`
	AggregationBinSize         *uint64           `json:"aggregation_bin_size,omitempty"`
	DegradationLevel           LadderLevel       `json:"degradation_level"`
	QueuePressureFixed         int64             `json:"queue_pressure_fixed"`
	TierADrops                 uint64            `json:"tier_a_drops"`
	ExportSafetyState          ExportSafetyState `json:"export_safety_state"`
	ProjectionInvariantsVersion string           `json:"projection_invariants_version"`

	tierAKeys []string
}

// sortedTierAKeys returns the keys actually present in TierASummaries, in
// sorted order, for canonical serialization and HUD rendering.
func (v *ViewModel) sortedTierAKeys() []string {
	if v.tierAKeys != nil {
		return v.tierAKeys
	}
	keys := make([]string, 0, len(v.TierASummaries))
	for k := range v.TierASummaries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	v.tierAKeys = keys
	return keys
}

// MarshalCanonical produces the deterministic byte sequence hashed into
// view-model-hash: declared field order, tier_a_summaries rendered with
// sorted keys, no pretty-printing, no field exclusions.
func (v *ViewModel) MarshalCanonical() ([]byte, error) {
	var buf []byte
	buf = append(buf, '{')

	writeField := func(first bool, key string, raw []byte) {
		if !first {
			buf = append(buf, ',')
		}
		buf = append(buf, '"')
		buf = append(buf, key...)
		buf = append(buf, '"', ':')
		buf = append(buf, raw...)
	}

	tierAJSON, err := marshalOrderedUint64Map(v.TierASummaries, v.sortedTierAKeys())
	if err != nil {
		return nil, err
	}
	writeField(true, "tier_a_summaries", tierAJSON)
	writeField(false, "aggregation_mode", jsonString(v.AggregationMode))
	if v.AggregationBinSize != nil {
		writeField(false, "aggregation_bin_size", jsonUint64(*v.AggregationBinSize))
	}
	writeField(false, "degradation_level", jsonString(v.DegradationLevel.String()))
	writeField(false, "queue_pressure_fixed", jsonInt64(v.QueuePressureFixed))
	writeField(false, "tier_a_drops", jsonUint64(v.TierADrops))
	writeField(false, "export_safety_state", jsonString(string(v.ExportSafetyState)))
	writeField(false, "projection_invariants_version", jsonString(v.ProjectionInvariantsVersion))

	buf = append(buf, '}')
	return buf, nil
}

// Project computes the ViewModel for (s, inv). It is a pure function: no
// I/O, no clock, no terminal state, no randomness.
func Project(s *state.AccumulatedState, inv Invariants) *ViewModel {
	step := inv.DegradationLevel.Step()

	summaries := map[string]uint64{}
	for _, name := range orderedTierANames() {
		count := s.EventCountByType[name]
		if count > 0 {
			summaries[name] = count
		}
	}

	var queuePressureFixed int64
	if len(s.PolicyDecisions) > 0 {
		queuePressureFixed = s.PolicyDecisions[len(s.PolicyDecisions)-1].QueuePressureFixed
	}

	return &ViewModel{
		TierASummaries:              summaries,
		AggregationMode:             step.AggregationMode,
		AggregationBinSize:          step.BinSize,
		DegradationLevel:            inv.DegradationLevel,
		QueuePressureFixed:          queuePressureFixed,
		TierADrops:                  s.TierADrops,
		ExportSafetyState:           ExportSafetyUnknown,
		ProjectionInvariantsVersion: inv.Version,
	}
}

// ProjectWithPressure computes the same ViewModel as Project, but stamps
// queue_pressure_fixed from an explicit live pressure reading instead of
// the last committed PolicyDecision. Use this when a caller holds a
// fresher backpressure-controller reading than anything folded into s
// yet — a live operator snapshot taken between PolicyDecision events,
// rather than the last one the reducer happened to fold.
func ProjectWithPressure(s *state.AccumulatedState, inv Invariants, queuePressure float64) *ViewModel {
	vm := Project(s, inv)
	vm.QueuePressureFixed = quantizeQueuePressure(queuePressure)
	return vm
}

// quantizeQueuePressure clamps pressure to [0.0, 1.0] before converting it
// to the same fixed-point representation PolicyDecision events carry, so
// an out-of-range live reading can never desync queue_pressure_fixed from
// the [0, 1_000_000] range every other producer of that field respects.
func quantizeQueuePressure(pressure float64) int64 {
	clamped := pressure
	if clamped < 0 {
		clamped = 0
	}
	if clamped > 1 {
		clamped = 1
	}
	return hashing.FixedPoint(clamped)
}

func orderedTierANames() []string {
	return []string{"RunStart", "RunEnd", "ToolCall", "ToolResult", "PolicyDecision", "RedactionApplied", "Error", "ClockSkewDetected"}
}

func jsonString(s string) []byte {
	b, _ := marshalString(s)
	return b
}

func jsonUint64(v uint64) []byte  { return []byte(fmt.Sprintf("%d", v)) }
func jsonInt64(v int64) []byte    { return []byte(fmt.Sprintf("%d", v)) }

func marshalOrderedUint64Map(m map[string]uint64, keys []string) ([]byte, error) {
	var buf []byte
	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyJSON, err := marshalString(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyJSON...)
		buf = append(buf, ':')
		buf = append(buf, jsonUint64(m[k])...)
	}
	buf = append(buf, '}')
	return buf, nil
}
