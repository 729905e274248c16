package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vifei-systems/vifei/coreengine/config"
	"github.com/vifei-systems/vifei/internal/cliproto"
	"github.com/vifei-systems/vifei/internal/event"
	"github.com/vifei-systems/vifei/internal/eventlog"
)

// withEngineConfig runs fn with the global engine config set to cfg and
// restores the default (both opt-ins off) afterward, so one test's opt-in
// can never leak into another.
func withEngineConfig(t *testing.T, cfg *config.EngineConfig) {
	t.Helper()
	config.SetEngineConfig(cfg)
	t.Cleanup(config.ResetEngineConfig)
}

// writeTestLog appends a small but realistic run (start, one tool
// round-trip, end) to a fresh log at dir/name and returns its path.
func writeTestLog(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	w, err := eventlog.Open(path)
	require.NoError(t, err)

	var exitCode int32 = 0
	events := []event.ImportEvent{
		{RunID: "run-1", EventID: "e1", SourceID: "agent-cassette", TimestampNS: 1,
			Tier: event.TierA, Payload: event.RunStart{Agent: "claude"}},
		{RunID: "run-1", EventID: "e2", SourceID: "agent-cassette", TimestampNS: 2,
			Tier: event.TierA, Payload: event.ToolCall{Tool: "Read"}},
		{RunID: "run-1", EventID: "e3", SourceID: "agent-cassette", TimestampNS: 3,
			Tier: event.TierA, Payload: event.ToolResult{Tool: "Read"}},
		{RunID: "run-1", EventID: "e4", SourceID: "agent-cassette", TimestampNS: 4,
			Tier: event.TierA, Payload: event.RunEnd{ExitCode: &exitCode}},
	}
	for _, ev := range events {
		_, err := w.Append(ev)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestRunViewProjectsViewModel(t *testing.T) {
	dir := t.TempDir()
	path := writeTestLog(t, dir, "run.log")

	o := runView(path, "L0", "", "")
	assert.Equal(t, cliproto.CodeOK, o.code)
	require.NotNil(t, o.human)
}

func TestRunViewMissingFileIsNotFound(t *testing.T) {
	o := runView(filepath.Join(t.TempDir(), "missing.log"), "L0", "", "")
	assert.Equal(t, cliproto.CodeNotFound, o.code)
}

func TestRunViewInvalidLevelIsInvalidArgs(t *testing.T) {
	dir := t.TempDir()
	path := writeTestLog(t, dir, "run.log")

	o := runView(path, "L9", "", "")
	assert.Equal(t, cliproto.CodeInvalidArgs, o.code)
}

func TestRunViewFieldExtractsNestedValue(t *testing.T) {
	dir := t.TempDir()
	path := writeTestLog(t, dir, "run.log")

	o := runView(path, "L0", "aggregation_mode", "")
	assert.Equal(t, cliproto.CodeOK, o.code)
	assert.Equal(t, "1:1", o.data)
}

func TestRunViewUnknownFieldIsNotFound(t *testing.T) {
	dir := t.TempDir()
	path := writeTestLog(t, dir, "run.log")

	o := runView(path, "L0", "does_not_exist", "")
	assert.Equal(t, cliproto.CodeNotFound, o.code)
}

func TestRunViewQueuePressureOverridesViewModel(t *testing.T) {
	dir := t.TempDir()
	path := writeTestLog(t, dir, "run.log")

	o := runView(path, "L0", "queue_pressure_fixed", "0.75")
	assert.Equal(t, cliproto.CodeOK, o.code)
	assert.Equal(t, float64(750000), o.data)
}

func TestRunViewQueuePressureOutOfRangeClamps(t *testing.T) {
	dir := t.TempDir()
	path := writeTestLog(t, dir, "run.log")

	o := runView(path, "L0", "queue_pressure_fixed", "1.5")
	assert.Equal(t, cliproto.CodeOK, o.code)
	assert.Equal(t, float64(1000000), o.data)
}

func TestRunViewInvalidQueuePressureIsInvalidArgs(t *testing.T) {
	dir := t.TempDir()
	path := writeTestLog(t, dir, "run.log")

	o := runView(path, "L0", "", "not-a-number")
	assert.Equal(t, cliproto.CodeInvalidArgs, o.code)
}

func TestRunCompareIdenticalLogsFindsNoDivergence(t *testing.T) {
	dir := t.TempDir()
	left := writeTestLog(t, dir, "left.log")
	right := writeTestLog(t, dir, "right.log")

	o := runCompare(left, right)
	assert.Equal(t, cliproto.CodeOK, o.code)
}

func TestRunCompareDivergentLogsReportsDiffFound(t *testing.T) {
	dir := t.TempDir()
	left := writeTestLog(t, dir, "left.log")

	w, err := eventlog.Open(filepath.Join(dir, "right.log"))
	require.NoError(t, err)
	_, err = w.Append(event.ImportEvent{
		RunID: "run-1", EventID: "e1", SourceID: "agent-cassette", TimestampNS: 1,
		Tier: event.TierA, Payload: event.RunStart{Agent: "codex"},
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	o := runCompare(left, filepath.Join(dir, "right.log"))
	assert.Equal(t, cliproto.CodeDiffFound, o.code)
	require.NotNil(t, o.human)
}

func TestRunCompareMissingFileIsNotFound(t *testing.T) {
	dir := t.TempDir()
	left := writeTestLog(t, dir, "left.log")
	o := runCompare(left, filepath.Join(dir, "missing.log"))
	assert.Equal(t, cliproto.CodeNotFound, o.code)
}

func writeTestFixture(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	lines := []string{
		`{"type":"session_start","session_id":"s1","timestamp":"2026-02-16T10:00:00Z","agent":"claude"}`,
		`{"type":"tool_use","session_id":"s1","timestamp":"2026-02-16T10:00:01Z","tool":"Read"}`,
		`{"type":"tool_result","session_id":"s1","timestamp":"2026-02-16T10:00:02Z","tool":"Read","status":"ok"}`,
		`{"type":"session_end","session_id":"s1","timestamp":"2026-02-16T10:00:03Z"}`,
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestRunVerifyWellFormedFixturePassesTrustGate(t *testing.T) {
	dir := t.TempDir()
	fixture := writeTestFixture(t, dir, "fixture.jsonl")

	o := runVerify(fixture)
	assert.Equal(t, cliproto.CodeOK, o.code)
	report := o.data.(verifyReport)
	assert.True(t, report.DeterministicArtifacts)
	assert.True(t, report.RefusalSemanticsHold)
	assert.True(t, report.TruthHUDLabelsPresent)
	assert.NotEmpty(t, report.ViewModelHash)
}

func TestRunVerifyMissingFileIsNotFound(t *testing.T) {
	o := runVerify(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Equal(t, cliproto.CodeNotFound, o.code)
}

func TestHasAllHUDLabelsRequiresEveryLabel(t *testing.T) {
	assert.True(t, hasAllHUDLabels("Level: L0 Agg: 1:1 Pressure: 0.00 Drops: 0 Export: CLEAN Version: projection-invariants-v0.1"))
	assert.False(t, hasAllHUDLabels("Level: L0 Agg: 1:1"))
}

func TestProbeRefusalSemanticsDetectsKnownSecret(t *testing.T) {
	holds, err := probeRefusalSemantics()
	require.NoError(t, err)
	assert.True(t, holds)
}

func TestRunExportMissingFileIsNotFound(t *testing.T) {
	o := runExport(filepath.Join(t.TempDir(), "missing.log"), "", "")
	assert.Equal(t, cliproto.CodeNotFound, o.code)
}

func TestRunExportDisabledByDefaultIsRefused(t *testing.T) {
	dir := t.TempDir()
	path := writeTestLog(t, dir, "run.log")

	o := runExport(path, "", "")
	assert.Equal(t, cliproto.CodeExportRefused, o.code)
}

func TestRunExportBundlesCleanLogWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	path := writeTestLog(t, dir, "run.log")
	cfg := config.DefaultEngineConfig()
	cfg.ExportEnabled = true
	withEngineConfig(t, cfg)

	o := runExport(path, "", "")
	assert.Equal(t, cliproto.CodeOK, o.code)
}

func TestRunIncidentPackMissingOutDirIsInvalidArgs(t *testing.T) {
	dir := t.TempDir()
	left := writeTestLog(t, dir, "left.log")
	right := writeTestLog(t, dir, "right.log")

	o := runIncidentPack(left, right, "", "", "")
	assert.Equal(t, cliproto.CodeInvalidArgs, o.code)
}

func TestRunIncidentPackBuildsEvidenceDirectory(t *testing.T) {
	dir := t.TempDir()
	left := writeTestLog(t, dir, "left.log")
	right := writeTestLog(t, dir, "right.log")
	out := filepath.Join(dir, "evidence")

	o := runIncidentPack(left, right, "", "", out)
	assert.Equal(t, cliproto.CodeOK, o.code)
	assert.FileExists(t, filepath.Join(out, "manifest.json"))
	assert.FileExists(t, filepath.Join(out, "delta.json"))
	assert.FileExists(t, filepath.Join(out, "left", "report.json"))
	assert.FileExists(t, filepath.Join(out, "left", "metrics.json"))
	assert.FileExists(t, filepath.Join(out, "left", "viewmodel.hash"))
	assert.FileExists(t, filepath.Join(out, "right", "report.json"))
	assert.FileExists(t, filepath.Join(out, "right", "metrics.json"))
	assert.FileExists(t, filepath.Join(out, "right", "viewmodel.hash"))
}

func TestRunTourMissingArtifactsDirIsInvalidArgs(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "fixture.jsonl")
	require.NoError(t, os.WriteFile(fixture, []byte(`{"type":"session_start","session_id":"s1","timestamp":"2026-02-16T10:00:00Z","agent":"claude"}`+"\n"), 0o644))

	o := runTour(fixture, "", "")
	assert.Equal(t, cliproto.CodeInvalidArgs, o.code)
}

func TestRunTourDisabledByDefaultIsInvalidArgs(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "fixture.jsonl")
	require.NoError(t, os.WriteFile(fixture, []byte(`{"type":"session_start","session_id":"s1","timestamp":"2026-02-16T10:00:00Z","agent":"claude"}`+"\n"), 0o644))

	o := runTour(fixture, "", filepath.Join(dir, "artifacts"))
	assert.Equal(t, cliproto.CodeInvalidArgs, o.code)
}

func TestRunTourRunsFixtureAndWritesArtifactsWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "fixture.jsonl")
	lines := []string{
		`{"type":"session_start","session_id":"s1","timestamp":"2026-02-16T10:00:00Z","agent":"claude"}`,
		`{"type":"tool_use","session_id":"s1","timestamp":"2026-02-16T10:00:01Z","tool":"Read"}`,
		`{"type":"tool_result","session_id":"s1","timestamp":"2026-02-16T10:00:02Z","tool":"Read","status":"ok"}`,
		`{"type":"session_end","session_id":"s1","timestamp":"2026-02-16T10:00:03Z"}`,
	}
	require.NoError(t, os.WriteFile(fixture, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	cfg := config.DefaultEngineConfig()
	cfg.StressEnabled = true
	withEngineConfig(t, cfg)

	artifactsDir := filepath.Join(dir, "artifacts")
	o := runTour(fixture, "", artifactsDir)
	assert.Equal(t, cliproto.CodeOK, o.code)
	assert.FileExists(t, filepath.Join(artifactsDir, "metrics.json"))
	assert.FileExists(t, filepath.Join(artifactsDir, "viewmodel.hash"))
	assert.FileExists(t, filepath.Join(artifactsDir, "ansi.capture"))
	assert.FileExists(t, filepath.Join(artifactsDir, "timetravel.capture"))
}

func TestRunTourMissingFixtureIsNotFound(t *testing.T) {
	o := runTour(filepath.Join(t.TempDir(), "missing.jsonl"), "", t.TempDir())
	assert.Equal(t, cliproto.CodeNotFound, o.code)
}
