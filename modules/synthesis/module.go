// Package synthesis provides the population synthesis stages: household
// sampling, hot-deck matching against the travel survey, income
// imputation, and the CSV export of the finished population.
package synthesis

import (
	"github.com/tellae/eqasim/internal/config"
	"github.com/tellae/eqasim/internal/popdata"
	"github.com/tellae/eqasim/internal/registry"
	"github.com/tellae/eqasim/internal/stage"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the synthesis stages with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStage(&stage.Descriptor{
		Name: "synthesis.population.sampled",
		Configure: func(c *stage.Configurator) {
			c.Stage("data.census.filtered")
			c.ConfigWithDefault(config.KeySamplingRate, 1.0)
			c.ConfigWithDefault(config.KeyRandomSeed, 0)
		},
		Execute:   executeSampled,
		NewResult: func() any { return new(popdata.Population) },
	})

	r.RegisterStage(&stage.Descriptor{
		Name: "synthesis.population.matched",
		Configure: func(c *stage.Configurator) {
			c.Stage("synthesis.population.sampled")
			c.Stage("data.hts.trips")
			c.ConfigWithDefault(config.KeyRandomSeed, 0)
		},
		Execute:   executeMatched,
		NewResult: func() any { return new(popdata.Matching) },
	})

	r.RegisterStage(&stage.Descriptor{
		Name: "synthesis.population.income",
		Configure: func(c *stage.Configurator) {
			c.Stage("data.income.municipality")
			c.Stage("synthesis.population.sampled")
			c.ConfigWithDefault(config.KeyRandomSeed, 0)
		},
		Execute:   executeIncome,
		NewResult: func() any { return new(popdata.Incomes) },
	})

	r.RegisterStage(&stage.Descriptor{
		Name: "synthesis.output",
		Configure: func(c *stage.Configurator) {
			c.Stage("synthesis.population.sampled")
			c.Stage("synthesis.population.matched")
			c.Stage("synthesis.population.income")
			c.Stage("data.hts.trips")
			c.Config(config.KeyOutputPath)
			c.ConfigWithDefault(config.KeyOutputPrefix, "")
		},
		Execute:   executeOutput,
		NewResult: func() any { return new(popdata.ExportSummary) },
	})
}
