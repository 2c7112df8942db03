package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ConfigPath locates the pipeline configuration document (.yml, .yaml
	// or .hcl).
	ConfigPath string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// Workers overrides the document's processes parameter when positive.
	Workers int

	// Force re-executes every stage, ignoring cached results.
	Force bool

	// List prints the resolved execution plan instead of running it.
	List bool

	// History prints the most recent journal entries instead of running.
	History bool
}

// NewConfig validates the raw configuration values.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("a configuration document path is required")
	}
	return &cfg, nil
}
