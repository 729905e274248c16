package state

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vifei-systems/vifei/internal/event"
)

// Checkpoint is the persisted wrapper: { reducer_version, commit_index,
// state }. Its reducer_version is checked on load; a mismatch is treated
// as a stale checkpoint rather than an error, since a logic change
// invalidating old checkpoints is expected and routine.
type Checkpoint struct {
	ReducerVersion string            `json:"reducer_version"`
	CommitIndex    uint64            `json:"commit_index"`
	State          *AccumulatedState `json:"state"`
}

// NewCheckpoint builds a checkpoint for the given state at commitIndex,
// stamped with the current reducer version.
func NewCheckpoint(commitIndex uint64, s *AccumulatedState) Checkpoint {
	return Checkpoint{ReducerVersion: ReducerVersion, CommitIndex: commitIndex, State: s}
}

// Save writes the checkpoint as pretty JSON via a write-then-rename so a
// crash mid-write never leaves a torn checkpoint file behind.
func (c Checkpoint) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshaling checkpoint: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("state: writing checkpoint %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("state: finalizing checkpoint %s: %w", path, err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint file. It returns (nil, nil) — not an
// error — when the file's reducer_version does not match the running
// ReducerVersion, since a stale checkpoint is an expected condition the
// caller should fall back to full replay for, not a failure.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("state: reading checkpoint %s: %w", path, err)
	}
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("state: parsing checkpoint %s: %w", path, err)
	}
	if c.ReducerVersion != ReducerVersion {
		return nil, nil
	}
	return &c, nil
}

// ResumeReplay folds events (expected to start at checkpoint.CommitIndex+1)
// onto the checkpointed state, producing the same result resume-from-state
// equivalence requires of a full replay over the combined event sequence.
func ResumeReplay(checkpoint *Checkpoint, events []event.CommittedEvent) (*AccumulatedState, []uint64) {
	s := checkpoint.State.Clone()
	var checkpoints []uint64
	for _, ev := range events {
		ReduceInPlace(s, ev)
		if CheckpointBoundary(ev.CommitIndex) {
			checkpoints = append(checkpoints, ev.CommitIndex)
		}
	}
	return s, checkpoints
}
