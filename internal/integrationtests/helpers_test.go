package integration_tests

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/tellae/eqasim/internal/app"
	"github.com/tellae/eqasim/internal/csvio"
	"github.com/tellae/eqasim/internal/testutil"
)

// pipelineDirs groups the directories one pipeline run works with.
type pipelineDirs struct {
	DataPath   string
	WorkDir    string
	OutputPath string
}

// setupDirs materializes the miniature dataset and a fresh working
// directory for one pipeline run.
func setupDirs(t *testing.T) pipelineDirs {
	t.Helper()
	workDir := t.TempDir()
	return pipelineDirs{
		DataPath:   testutil.WriteDataset(t),
		WorkDir:    workDir,
		OutputPath: filepath.Join(workDir, "output"),
	}
}

// yamlDocument renders the canonical two-target pipeline document. The
// perimeter keeps region 53 only, so the Nantes census household drops out
// and the dataset's income repairs stay deterministic.
func yamlDocument(d pipelineDirs) string {
	return fmt.Sprintf(`working_directory: %s
run:
  - synthesis.output
  - matsim.output
config:
  processes: 2
  hts: entd
  sampling_rate: 1.0
  random_seed: 1234
  data_path: %s
  census_path: %s
  output_path: %s
  output_prefix: rennes_
  java_memory: 1G
  regions: ["53"]
`, d.WorkDir, d.DataPath, testutil.CensusPath, d.OutputPath)
}

// hclDocument renders the same pipeline in the equivalent HCL form.
func hclDocument(d pipelineDirs) string {
	return fmt.Sprintf(`working_directory = %q
run               = ["synthesis.output", "matsim.output"]

config {
  processes     = 2
  hts           = "entd"
  sampling_rate = 1.0
  random_seed   = 1234
  data_path     = %q
  census_path   = %q
  output_path   = %q
  output_prefix = "rennes_"
  java_memory   = "1G"
  regions       = ["53"]
}
`, d.WorkDir, d.DataPath, testutil.CensusPath, d.OutputPath)
}

// writeDocument stores a pipeline document and returns its path.
func writeDocument(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// runPipeline builds a fresh app over the document and executes it,
// returning the captured log output and the run error.
func runPipeline(t *testing.T, configPath string, mutate func(*app.Config)) (*testutil.SafeBuffer, error) {
	t.Helper()
	cfg, err := app.NewConfig(app.Config{
		ConfigPath: configPath,
		LogFormat:  "text",
		LogLevel:   "debug",
	})
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}

	pipelineApp, logs := app.SetupAppTest(t, cfg)
	return logs, pipelineApp.Run(context.Background())
}

// readCSV loads one pipeline output file.
func readCSV(t *testing.T, path string) *csvio.Table {
	t.Helper()
	table, err := csvio.ReadFile(path)
	require.NoError(t, err, "reading %s", path)
	return table
}

// gunzip returns the decompressed content of a gzipped output file.
func gunzip(t *testing.T, path string) string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	reader, err := gzip.NewReader(file)
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	return string(data)
}
