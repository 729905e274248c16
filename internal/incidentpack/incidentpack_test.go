package incidentpack_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vifei-systems/vifei/internal/event"
	"github.com/vifei-systems/vifei/internal/eventlog"
	"github.com/vifei-systems/vifei/internal/incidentpack"
)

func buildLog(t *testing.T, dir, name string, result string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	w, err := eventlog.Open(path)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Append(event.ImportEvent{
		RunID: "run-1", EventID: "e1", SourceID: "agent", TimestampNS: 1,
		Tier: event.TierA, Payload: event.RunStart{Agent: "claude"},
	})
	require.NoError(t, err)
	_, err = w.Append(event.ImportEvent{
		RunID: "run-1", EventID: "e2", SourceID: "agent", TimestampNS: 2,
		Tier: event.TierA, Payload: event.ToolResult{Tool: "Read", Result: &result},
	})
	require.NoError(t, err)
	return path
}

func fixedTime() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

func TestRunIdenticalSidesProduceNoDeltaRecords(t *testing.T) {
	dir := t.TempDir()
	leftPath := buildLog(t, dir, "left.log", "ok")
	rightPath := buildLog(t, dir, "right.log", "ok")

	result, err := incidentpack.Run(
		incidentpack.SideInput{LogPath: leftPath, BlobDir: filepath.Join(dir, "left-blobs")},
		incidentpack.SideInput{LogPath: rightPath, BlobDir: filepath.Join(dir, "right-blobs")},
		fixedTime(),
	)
	require.NoError(t, err)
	assert.Empty(t, result.Delta.Records)
	assert.Equal(t, uint64(2), result.Left.EventCount)
	assert.Equal(t, uint64(2), result.Right.EventCount)
	require.NotNil(t, result.Left.Export)
	assert.False(t, result.Left.Export.Refused)
}

func TestRunDivergentSidesProduceDeltaRecords(t *testing.T) {
	dir := t.TempDir()
	leftPath := buildLog(t, dir, "left.log", "ok")
	rightPath := buildLog(t, dir, "right.log", "different")

	result, err := incidentpack.Run(
		incidentpack.SideInput{LogPath: leftPath, BlobDir: filepath.Join(dir, "left-blobs")},
		incidentpack.SideInput{LogPath: rightPath, BlobDir: filepath.Join(dir, "right-blobs")},
		fixedTime(),
	)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Delta.Records)
}

func TestWriteProducesEvidenceDirectory(t *testing.T) {
	dir := t.TempDir()
	leftPath := buildLog(t, dir, "left.log", "ok")
	rightPath := buildLog(t, dir, "right.log", "ok")

	result, err := incidentpack.Run(
		incidentpack.SideInput{LogPath: leftPath, BlobDir: filepath.Join(dir, "left-blobs")},
		incidentpack.SideInput{LogPath: rightPath, BlobDir: filepath.Join(dir, "right-blobs")},
		fixedTime(),
	)
	require.NoError(t, err)

	outDir := filepath.Join(dir, "pack")
	require.NoError(t, incidentpack.Write(result, outDir))

	for _, p := range []string{
		filepath.Join("left", "report.json"),
		filepath.Join("left", "metrics.json"),
		filepath.Join("left", "viewmodel.hash"),
		filepath.Join("left", "bundle.tar.zst"),
		filepath.Join("right", "report.json"),
		filepath.Join("right", "metrics.json"),
		filepath.Join("right", "viewmodel.hash"),
		filepath.Join("right", "bundle.tar.zst"),
		"delta.json",
		"manifest.json",
	} {
		assert.FileExists(t, filepath.Join(outDir, p))
	}

	manifestBytes, err := os.ReadFile(filepath.Join(outDir, "manifest.json"))
	require.NoError(t, err)
	assert.Contains(t, string(manifestBytes), incidentpack.PackVersion)

	hashBytes, err := os.ReadFile(filepath.Join(outDir, "left", "viewmodel.hash"))
	require.NoError(t, err)
	assert.NotEmpty(t, string(hashBytes))
}
