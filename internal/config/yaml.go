package config

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/tellae/eqasim/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// YAMLLoader reads pipeline configuration documents in the primary YAML
// form:
//
//	working_directory: cache
//	run:
//	  - synthesis.output
//	  - matsim.output
//	config:
//	  sampling_rate: 0.05
//	  random_seed: 1234
type YAMLLoader struct{}

// yamlDocument is the wire structure of the YAML form.
type yamlDocument struct {
	WorkingDirectory string         `yaml:"working_directory"`
	Run              []string       `yaml:"run"`
	Config           map[string]any `yaml:"config"`
}

// Load implements Loader.
func (l *YAMLLoader) Load(ctx context.Context, path string) (*Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading YAML configuration document.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}

	var wire yamlDocument
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	// Unknown top-level keys are almost always typos; reject them early.
	decoder.KnownFields(true)
	if err := decoder.Decode(&wire); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	doc := &Document{
		WorkingDirectory: wire.WorkingDirectory,
		Run:              wire.Run,
		Params:           normalizeParams(wire.Config),
		Path:             path,
	}
	logger.Debug("YAML configuration document loaded.",
		"run_targets", len(doc.Run), "params", len(doc.Params))
	return doc, nil
}
