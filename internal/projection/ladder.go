// Package projection implements the pure (State, ProjectionInvariants) →
// ViewModel mapping and the six-step degradation ladder that drives it.
package projection

import "fmt"

// LadderLevel is one of the six degradation steps L0..L5.
type LadderLevel int

const (
	L0 LadderLevel = iota
	L1
	L2
	L3
	L4
	L5
)

// String returns the canonical "L0".."L5" form.
func (l LadderLevel) String() string {
	switch l {
	case L0:
		return "L0"
	case L1:
		return "L1"
	case L2:
		return "L2"
	case L3:
		return "L3"
	case L4:
		return "L4"
	case L5:
		return "L5"
	default:
		return fmt.Sprintf("L?(%d)", int(l))
	}
}

// MarshalJSON emits the canonical string form.
func (l LadderLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// UnmarshalJSON parses the canonical string form.
func (l *LadderLevel) UnmarshalJSON(data []byte) error {
	parsed, err := ParseLadderLevel(trimQuotes(data))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func trimQuotes(data []byte) string {
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		return string(data[1 : len(data)-1])
	}
	return string(data)
}

// ParseLadderLevel parses "L0".."L5" back into a LadderLevel.
func ParseLadderLevel(s string) (LadderLevel, error) {
	switch s {
	case "L0":
		return L0, nil
	case "L1":
		return L1, nil
	case "L2":
		return L2, nil
	case "L3":
		return L3, nil
	case "L4":
		return L4, nil
	case "L5":
		return L5, nil
	default:
		return 0, fmt.Errorf("projection: invalid ladder level %q", s)
	}
}

// LadderStep describes one row of the degradation ladder table.
type LadderStep struct {
	AggregationMode string
	BinSize         *uint64
	UIState         string
}

var ladderSteps = map[LadderLevel]LadderStep{
	L0: {AggregationMode: "1:1", BinSize: nil, UIState: "normal"},
	L1: {AggregationMode: "10:1", BinSize: uint64Ptr(10), UIState: "aggregate B/C"},
	L2: {AggregationMode: "collapsed", BinSize: nil, UIState: "counts-only for B/C"},
	L3: {AggregationMode: "collapsed", BinSize: nil, UIState: "reduced fidelity"},
	L4: {AggregationMode: "collapsed", BinSize: nil, UIState: "UI frozen (non-HUD)"},
	L5: {AggregationMode: "frozen", BinSize: nil, UIState: "safe-failure posture"},
}

// Step returns the ladder table row for l.
func (l LadderLevel) Step() LadderStep { return ladderSteps[l] }

func uint64Ptr(v uint64) *uint64 { return &v }
