package delta_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vifei-systems/vifei/internal/delta"
	"github.com/vifei-systems/vifei/internal/event"
)

func commit(idx uint64, payload event.Payload) event.CommittedEvent {
	return event.ImportEvent{
		RunID: "run-1", EventID: "e", SourceID: "agent", TimestampNS: idx + 1,
		Tier: event.TierA, Payload: payload,
	}.WithCommitIndex(idx)
}

func TestDiffRunsIdenticalStreamsHaveNoRecords(t *testing.T) {
	left := []event.CommittedEvent{commit(0, event.RunStart{Agent: "claude"}), commit(1, event.ToolCall{Tool: "bash"})}
	right := []event.CommittedEvent{commit(0, event.RunStart{Agent: "claude"}), commit(1, event.ToolCall{Tool: "bash"})}

	result, err := delta.DiffRuns(left, right)
	require.NoError(t, err)
	assert.Empty(t, result.Records)
}

func TestDiffRunsDetectsMissingOnRight(t *testing.T) {
	left := []event.CommittedEvent{commit(0, event.RunStart{Agent: "claude"})}
	var right []event.CommittedEvent

	result, err := delta.DiffRuns(left, right)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, delta.EventMissingRight, result.Records[0].ChangeClass)
}

func TestDiffRunsDetectsMissingOnLeft(t *testing.T) {
	var left []event.CommittedEvent
	right := []event.CommittedEvent{commit(0, event.RunStart{Agent: "claude"})}

	result, err := delta.DiffRuns(left, right)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, delta.EventMissingLeft, result.Records[0].ChangeClass)
}

func TestDiffRunsDetectsValueMismatch(t *testing.T) {
	left := []event.CommittedEvent{commit(0, event.RunStart{Agent: "claude"})}
	right := []event.CommittedEvent{commit(0, event.RunStart{Agent: "gpt"})}

	result, err := delta.DiffRuns(left, right)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, delta.ValueMismatch, result.Records[0].ChangeClass)
	require.NotNil(t, result.Records[0].LeftValue)
	require.NotNil(t, result.Records[0].RightValue)
}

func TestDiffRunsOrdersByCommitIndexThenPath(t *testing.T) {
	left := []event.CommittedEvent{
		commit(1, event.RunStart{Agent: "claude"}),
		commit(0, event.ToolCall{Tool: "bash", Args: strPtr("x")}),
	}
	right := []event.CommittedEvent{
		commit(1, event.RunStart{Agent: "gpt"}),
		commit(0, event.ToolCall{Tool: "zsh", Args: strPtr("y")}),
	}

	result, err := delta.DiffRuns(left, right)
	require.NoError(t, err)
	require.True(t, len(result.Records) >= 2)
	for i := 1; i < len(result.Records); i++ {
		prev, cur := result.Records[i-1], result.Records[i]
		if prev.CommitIndex == cur.CommitIndex {
			assert.LessOrEqual(t, prev.JSONPath, cur.JSONPath)
		} else {
			assert.Less(t, prev.CommitIndex, cur.CommitIndex)
		}
	}
}

func TestDiffRunsDuplicateCommitIndexTieBreakIsDeterministic(t *testing.T) {
	left := []event.CommittedEvent{
		commit(0, event.RunStart{Agent: "zzz"}),
		commit(0, event.RunStart{Agent: "aaa"}),
	}
	right := []event.CommittedEvent{commit(0, event.RunStart{Agent: "aaa"})}

	result, err := delta.DiffRuns(left, right)
	require.NoError(t, err)
	assert.Empty(t, result.Records)
}

func strPtr(s string) *string { return &s }
