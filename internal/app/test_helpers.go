package app

import (
	"os"
	"testing"

	"github.com/tellae/eqasim/internal/config"
	"github.com/tellae/eqasim/internal/registry"
	"github.com/tellae/eqasim/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing. Logs go to
// the returned buffer at debug level; set EQASIM_TEST_LOGS=true to dump
// them when a test finishes.
func SetupAppTest(t *testing.T, cfg *Config, modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"

	loader, err := config.ForPath(cfg.ConfigPath)
	if err != nil {
		t.Fatalf("no loader for %s: %v", cfg.ConfigPath, err)
	}
	testApp := NewApp(logBuffer, cfg, loader, modules...)

	t.Cleanup(func() {
		if os.Getenv("EQASIM_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
