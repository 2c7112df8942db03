package integration_tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tellae/eqasim/internal/app"
	"github.com/tellae/eqasim/internal/journal"
)

// history returns the recorded runs for a working directory, newest first.
func history(t *testing.T, workDir string) []journal.Run {
	t.Helper()
	jnl, err := journal.Open(filepath.Join(workDir, "journal.db"))
	require.NoError(t, err)
	defer jnl.Close()

	runs, err := jnl.History(context.Background(), 0)
	require.NoError(t, err)
	return runs
}

func TestSecondRunReusesCachedStages(t *testing.T) {
	dirs := setupDirs(t)
	configPath := writeDocument(t, "pipeline.yml", yamlDocument(dirs))

	_, err := runPipeline(t, configPath, nil)
	require.NoError(t, err)

	logs, err := runPipeline(t, configPath, nil)
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "Reused cached stage result.")

	runs := history(t, dirs.WorkDir)
	require.Len(t, runs, 2)
	assert.Equal(t, 11, runs[0].Cached, "an unchanged rerun reuses every stage")
	assert.Zero(t, runs[0].Executed)
	assert.Equal(t, 11, runs[1].Executed)
}

func TestForceReexecutesEveryStage(t *testing.T) {
	dirs := setupDirs(t)
	configPath := writeDocument(t, "pipeline.yml", yamlDocument(dirs))

	_, err := runPipeline(t, configPath, nil)
	require.NoError(t, err)

	logs, err := runPipeline(t, configPath, func(cfg *app.Config) { cfg.Force = true })
	require.NoError(t, err)

	assert.NotContains(t, logs.String(), "Reused cached stage result.")

	runs := history(t, dirs.WorkDir)
	require.Len(t, runs, 2)
	assert.Equal(t, 11, runs[0].Executed)
	assert.Zero(t, runs[0].Cached)
}

// TestGrownInputInvalidatesDependentStages edits the survey between runs:
// the stages built from it re-execute while the census and income branches
// stay cached.
func TestGrownInputInvalidatesDependentStages(t *testing.T) {
	dirs := setupDirs(t)
	configPath := writeDocument(t, "pipeline.yml", yamlDocument(dirs))

	_, err := runPipeline(t, configPath, nil)
	require.NoError(t, err)

	tripsPath := filepath.Join(dirs.DataPath, "entd", "trips.csv")
	file, err := os.OpenFile(tripsPath, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = file.WriteString("5;shop;bike;50400;51300\n")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	_, err = runPipeline(t, configPath, nil)
	require.NoError(t, err)

	// data.hts.trips, the matching built on it, and both outputs rerun;
	// the remaining seven stages come from the cache.
	runs := history(t, dirs.WorkDir)
	require.Len(t, runs, 2)
	assert.Equal(t, 4, runs[0].Executed)
	assert.Equal(t, 7, runs[0].Cached)
}

func TestHistoryModeListsRecordedRuns(t *testing.T) {
	dirs := setupDirs(t)
	configPath := writeDocument(t, "pipeline.yml", yamlDocument(dirs))

	_, err := runPipeline(t, configPath, nil)
	require.NoError(t, err)

	logs, err := runPipeline(t, configPath, func(cfg *app.Config) { cfg.History = true })
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "executed=11 cached=0")
	assert.Contains(t, out, configPath)
}
