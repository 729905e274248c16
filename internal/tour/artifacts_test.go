package tour_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vifei-systems/vifei/internal/tour"
)

func TestWriteArtifactsProducesAllFourFiles(t *testing.T) {
	workDir := t.TempDir()
	artifacts, err := tour.RunFixture(strings.NewReader(happyTourFixture), workDir)
	require.NoError(t, err)

	outDir := filepath.Join(workDir, "out")
	require.NoError(t, tour.WriteArtifacts(artifacts, outDir))

	for _, name := range []string{"metrics.json", "viewmodel.hash", "ansi.capture", "timetravel.capture"} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}

	hashBytes, err := os.ReadFile(filepath.Join(outDir, "viewmodel.hash"))
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(string(hashBytes)), 64)
}
