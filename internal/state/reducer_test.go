package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vifei-systems/vifei/internal/event"
	"github.com/vifei-systems/vifei/internal/state"
)

func committed(idx uint64, runID, sourceID string, tier event.Tier, payload event.Payload) event.CommittedEvent {
	return event.ImportEvent{
		RunID:       runID,
		EventID:     "evt",
		SourceID:    sourceID,
		TimestampNS: uint64(idx) + 1,
		Tier:        tier,
		Payload:     payload,
	}.WithCommitIndex(idx)
}

func TestReduceAndReduceInPlaceAgree(t *testing.T) {
	events := []event.CommittedEvent{
		committed(0, "run-1", "agent", event.TierA, event.RunStart{Agent: "claude"}),
		committed(1, "run-1", "agent", event.TierA, event.ToolCall{Tool: "bash"}),
		committed(2, "run-1", "agent", event.TierA, event.ToolResult{Tool: "bash", Status: strPtr("success")}),
	}

	pure := state.New()
	for _, ev := range events {
		pure = state.Reduce(pure, ev)
	}

	inPlace := state.New()
	for _, ev := range events {
		state.ReduceInPlace(inPlace, ev)
	}

	pureCanon, err := state.MarshalCanonical(pure)
	require.NoError(t, err)
	inPlaceCanon, err := state.MarshalCanonical(inPlace)
	require.NoError(t, err)
	assert.JSONEq(t, string(pureCanon), string(inPlaceCanon))
}

func TestReduceToolCallAndResultCounters(t *testing.T) {
	s := state.New()
	state.ReduceInPlace(s, committed(0, "run-1", "agent", event.TierA, event.ToolCall{Tool: "bash"}))
	state.ReduceInPlace(s, committed(1, "run-1", "agent", event.TierA, event.ToolResult{Tool: "bash", Status: strPtr("success")}))
	state.ReduceInPlace(s, committed(2, "run-1", "agent", event.TierA, event.ToolResult{Tool: "bash", Status: strPtr("error")}))
	state.ReduceInPlace(s, committed(3, "run-1", "agent", event.TierA, event.ToolResult{Tool: "bash", Status: strPtr("pending")}))

	tool := s.Tools["bash"]
	require.NotNil(t, tool)
	assert.Equal(t, uint64(1), tool.CallCount)
	assert.Equal(t, uint64(3), tool.ResultCount)
	assert.Equal(t, uint64(1), tool.SuccessCount)
	assert.Equal(t, uint64(1), tool.ErrorCount)
}

func TestReducePolicyDecisionQuantizesAndClamps(t *testing.T) {
	s := state.New()
	state.ReduceInPlace(s, committed(0, "run-1", "agent", event.TierA, event.PolicyDecision{
		FromLevel: "L0", ToLevel: "L1", Trigger: "queue_pressure", QueuePressure: 1.5,
	}))
	require.Len(t, s.PolicyDecisions, 1)
	assert.Equal(t, int64(1_000_000), s.PolicyDecisions[0].QueuePressureFixed)
}

func TestReduceGenericCountsBothKeys(t *testing.T) {
	s := state.New()
	state.ReduceInPlace(s, committed(0, "run-1", "importer", event.TierC, event.Generic{EventType: "provider.rate_limit"}))

	assert.Equal(t, uint64(1), s.EventCountByType["Generic"])
	assert.Equal(t, uint64(1), s.EventCountByType["Generic:provider.rate_limit"])
}

func TestReplayCheckpointBoundaries(t *testing.T) {
	var events []event.CommittedEvent
	for i := uint64(0); i < 5000; i++ {
		events = append(events, committed(i, "run-1", "agent", event.TierA, event.ToolCall{Tool: "bash"}))
	}

	_, checkpoints := state.Replay(events)
	require.Len(t, checkpoints, 1)
	assert.Equal(t, uint64(4999), checkpoints[0])
}

func TestResumeFromCheckpointMatchesFullReplay(t *testing.T) {
	var all []event.CommittedEvent
	for i := uint64(0); i < 6000; i++ {
		all = append(all, committed(i, "run-1", "agent", event.TierA, event.ToolCall{Tool: "bash"}))
	}

	fullState, _ := state.Replay(all)
	fullHash, err := state.StateHash(fullState)
	require.NoError(t, err)

	firstHalf := all[:5000]
	secondHalf := all[5000:]
	partial, _ := state.Replay(firstHalf)
	checkpoint := state.NewCheckpoint(4999, partial)
	resumed, _ := state.ResumeReplay(&checkpoint, secondHalf)
	resumedHash, err := state.StateHash(resumed)
	require.NoError(t, err)

	assert.Equal(t, fullHash, resumedHash)
}

func TestCheckpointBoundary(t *testing.T) {
	assert.True(t, state.CheckpointBoundary(4999))
	assert.False(t, state.CheckpointBoundary(5000))
	assert.True(t, state.CheckpointBoundary(9999))
}

func strPtr(s string) *string { return &s }
