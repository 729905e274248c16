package eventlog_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vifei-systems/vifei/internal/event"
	"github.com/vifei-systems/vifei/internal/eventlog"
)

func TestReadCommittedReturnsAppendedEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	w, err := eventlog.Open(path)
	require.NoError(t, err)

	_, err = w.Append(event.ImportEvent{
		RunID: "run-1", EventID: "e1", SourceID: "agent", TimestampNS: 1,
		Tier: event.TierA, Payload: event.RunStart{Agent: "claude"},
	})
	require.NoError(t, err)
	var exitCode int32 = 0
	_, err = w.Append(event.ImportEvent{
		RunID: "run-1", EventID: "e2", SourceID: "agent", TimestampNS: 2,
		Tier: event.TierA, Payload: event.RunEnd{ExitCode: &exitCode},
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	events, err := eventlog.ReadCommitted(path)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(0), events[0].CommitIndex)
	assert.Equal(t, uint64(1), events[1].CommitIndex)
}

func TestReadCommittedMissingFileReturnsError(t *testing.T) {
	_, err := eventlog.ReadCommitted(filepath.Join(t.TempDir(), "does-not-exist.log"))
	assert.Error(t, err)
}

func TestReadCommittedSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	w, err := eventlog.Open(path)
	require.NoError(t, err)
	_, err = w.Append(event.ImportEvent{
		RunID: "run-1", EventID: "e1", SourceID: "agent", TimestampNS: 1,
		Tier: event.TierA, Payload: event.RunStart{Agent: "claude"},
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	events, err := eventlog.ReadCommitted(path)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
