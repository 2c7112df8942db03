// Package matsim provides the matsim.output stage: a MATSim plans file
// built from the synthesized population, a minimal simulation config and
// a launcher script. Running the simulation itself stays outside the
// pipeline.
package matsim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tellae/eqasim/internal/config"
	"github.com/tellae/eqasim/internal/ctxlog"
	"github.com/tellae/eqasim/internal/fsutil"
	"github.com/tellae/eqasim/internal/popdata"
	"github.com/tellae/eqasim/internal/registry"
	"github.com/tellae/eqasim/internal/stage"
)

const scriptName = "run_matsim.sh"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the MATSim output stage with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStage(&stage.Descriptor{
		Name: "matsim.output",
		Configure: func(c *stage.Configurator) {
			c.Stage("synthesis.population.sampled")
			c.Stage("synthesis.population.matched")
			c.Stage("synthesis.population.income")
			c.Stage("data.hts.trips")
			c.Stage("data.spatial.codes")
			c.Config(config.KeyOutputPath)
			c.ConfigWithDefault(config.KeyOutputPrefix, "")
			c.ConfigWithDefault(config.KeyJavaMemory, "14G")
		},
		Execute:   executeOutput,
		NewResult: func() any { return new(popdata.MATSimSummary) },
	})
}

func executeOutput(ctx context.Context, rt *stage.Runtime) (any, error) {
	population, err := stage.ResultOf[*popdata.Population](rt, "synthesis.population.sampled")
	if err != nil {
		return nil, err
	}
	matching, err := stage.ResultOf[*popdata.Matching](rt, "synthesis.population.matched")
	if err != nil {
		return nil, err
	}
	incomes, err := stage.ResultOf[*popdata.Incomes](rt, "synthesis.population.income")
	if err != nil {
		return nil, err
	}
	survey, err := stage.ResultOf[*popdata.Survey](rt, "data.hts.trips")
	if err != nil {
		return nil, err
	}
	register, err := stage.ResultOf[*popdata.MunicipalityRegister](rt, "data.spatial.codes")
	if err != nil {
		return nil, err
	}

	outputPath, err := rt.Params.String(config.KeyOutputPath)
	if err != nil {
		return nil, err
	}
	prefix, err := rt.Params.String(config.KeyOutputPrefix)
	if err != nil {
		return nil, err
	}
	javaMemory, err := rt.Params.String(config.KeyJavaMemory)
	if err != nil {
		return nil, err
	}
	if err := fsutil.EnsureDir(outputPath); err != nil {
		return nil, err
	}

	if len(matching.Matches) != len(population.Persons) {
		return nil, fmt.Errorf("matching covers %d persons, population has %d",
			len(matching.Matches), len(population.Persons))
	}

	summary := &popdata.MATSimSummary{
		PopulationPath: filepath.Join(outputPath, prefix+"population.xml.gz"),
		ConfigPath:     filepath.Join(outputPath, prefix+"config.xml"),
		ScriptPath:     filepath.Join(outputPath, scriptName),
		Persons:        len(population.Persons),
	}

	if err := writePopulation(summary.PopulationPath, population, matching, incomes, survey, register); err != nil {
		return nil, err
	}
	if err := writeConfig(summary.ConfigPath, filepath.Base(summary.PopulationPath)); err != nil {
		return nil, err
	}
	if err := writeScript(summary.ScriptPath, javaMemory, filepath.Base(summary.ConfigPath)); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("Wrote MATSim scenario.",
		"stage", rt.Name(),
		"persons", summary.Persons,
		"plans", summary.PopulationPath)
	return summary, nil
}

// writeScript emits the launcher. The heap size comes from java_memory
// verbatim, already validated as a byte size by the config layer.
func writeScript(path, javaMemory, configFile string) error {
	script := fmt.Sprintf(`#!/bin/sh
set -e
cd "$(dirname "$0")"
java -Xmx%s -cp matsim.jar org.matsim.run.Controler %s "$@"
`, javaMemory, configFile)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
