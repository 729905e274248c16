package state

import (
	"fmt"

	"github.com/vifei-systems/vifei/internal/event"
	"github.com/vifei-systems/vifei/internal/hashing"
)

// Reduce is the pure fold: it returns a new AccumulatedState, leaving in
// untouched. It is implemented in terms of ReduceInPlace on a clone so the
// two entry points can never drift in behavior.
func Reduce(in *AccumulatedState, ev event.CommittedEvent) *AccumulatedState {
	out := in.Clone()
	ReduceInPlace(out, ev)
	return out
}

// ReduceInPlace mutates s to fold in ev, for replay-heavy paths where
// cloning on every step would be wasteful. Reduce and ReduceInPlace must
// always produce equal results for equal inputs.
func ReduceInPlace(s *AccumulatedState, ev event.CommittedEvent) {
	idx := ev.CommitIndex
	s.LastCommitIndex = &idx

	typeName := ev.TypeName()
	s.EventCountByType[typeName]++
	s.EventCountByTier[ev.Tier.String()]++

	if ev.IsTierA() {
		s.TierACount++
	}

	run := s.Runs[ev.RunID]
	if run == nil {
		run = &RunInfo{}
		s.Runs[ev.RunID] = run
	}
	run.EventCount++

	switch p := ev.Payload.(type) {
	case event.RunStart:
		run.Agent = p.Agent
		run.Args = p.Args
	case event.RunEnd:
		run.Ended = true
		run.ExitCode = p.ExitCode
		run.Reason = p.Reason
	case event.ToolCall:
		tool := s.Tools[p.Tool]
		if tool == nil {
			tool = &ToolSummary{}
			s.Tools[p.Tool] = tool
		}
		tool.CallCount++
	case event.ToolResult:
		tool := s.Tools[p.Tool]
		if tool == nil {
			tool = &ToolSummary{}
			s.Tools[p.Tool] = tool
		}
		tool.ResultCount++
		if p.Status != nil {
			switch *p.Status {
			case "success":
				tool.SuccessCount++
			case "error":
				tool.ErrorCount++
			}
		}
	case event.PolicyDecision:
		pressure := p.QueuePressure
		if pressure < 0 {
			pressure = 0
		}
		if pressure > 1 {
			pressure = 1
		}
		fixed := hashing.FixedPoint(pressure)
		if fixed < 0 {
			fixed = 0
		}
		if fixed > 1_000_000 {
			fixed = 1_000_000
		}
		s.PolicyDecisions = append(s.PolicyDecisions, PolicyTransition{
			CommitIndex:        idx,
			FromLevel:          p.FromLevel,
			ToLevel:            p.ToLevel,
			Trigger:            p.Trigger,
			QueuePressureFixed: fixed,
		})
	case event.RedactionApplied:
		s.RedactionLog = append(s.RedactionLog, RedactionRecord{
			CommitIndex:   idx,
			TargetEventID: p.TargetEventID,
			FieldPath:     p.FieldPath,
			Reason:        p.Reason,
		})
	case event.Error:
		s.ErrorLog = append(s.ErrorLog, ErrorRecord{
			CommitIndex: idx,
			Kind:        p.Kind,
			Message:     p.Message,
			Severity:    p.Severity,
		})
	case event.ClockSkewDetected:
		s.ClockSkewLog = append(s.ClockSkewLog, ClockSkewRecord{
			CommitIndex: idx,
			ExpectedNS:  p.ExpectedNS,
			ActualNS:    p.ActualNS,
			DeltaNS:     p.DeltaNS,
		})
	case event.Generic:
		s.EventCountByType[fmt.Sprintf("Generic:%s", p.EventType)]++
	}
}

// CheckpointBoundary reports whether commitIndex lands on a checkpoint
// boundary: (commit_index + 1) mod 5000 == 0.
func CheckpointBoundary(commitIndex uint64) bool {
	return (commitIndex+1)%5000 == 0
}

// Replay folds events in order into a fresh state, returning the final
// state and the commit indices at which a checkpoint boundary was crossed.
func Replay(events []event.CommittedEvent) (*AccumulatedState, []uint64) {
	s := New()
	var checkpoints []uint64
	for _, ev := range events {
		ReduceInPlace(s, ev)
		if CheckpointBoundary(ev.CommitIndex) {
			checkpoints = append(checkpoints, ev.CommitIndex)
		}
	}
	return s, checkpoints
}

// StateHash computes BLAKE3(reducer_version_bytes || canonical_state_bytes).
func StateHash(s *AccumulatedState) (hashing.Digest, error) {
	canonical, err := MarshalCanonical(s)
	if err != nil {
		return "", fmt.Errorf("state: computing state hash: %w", err)
	}
	h := hashing.NewHasher()
	h.Write([]byte(ReducerVersion))
	h.Write(canonical)
	return h.Sum(), nil
}
