// Package census provides the census microdata stages: raw extraction,
// cleaning into typed persons and households, and filtering to the study
// perimeter.
package census

import (
	"github.com/tellae/eqasim/internal/config"
	"github.com/tellae/eqasim/internal/popdata"
	"github.com/tellae/eqasim/internal/registry"
	"github.com/tellae/eqasim/internal/stage"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the census stages with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStage(&stage.Descriptor{
		Name: "data.census.raw",
		Configure: func(c *stage.Configurator) {
			c.Config(config.KeyDataPath)
			c.Config(config.KeyCensusPath)
		},
		Validate:  validateRaw,
		Execute:   executeRaw,
		NewResult: func() any { return new(popdata.CensusExtract) },
	})

	r.RegisterStage(&stage.Descriptor{
		Name: "data.census.cleaned",
		Configure: func(c *stage.Configurator) {
			c.Stage("data.census.raw")
		},
		Execute:   executeCleaned,
		NewResult: func() any { return new(popdata.Population) },
	})

	r.RegisterStage(&stage.Descriptor{
		Name: "data.census.filtered",
		Configure: func(c *stage.Configurator) {
			c.Stage("data.census.cleaned")
			c.Stage("data.spatial.codes")
		},
		Execute:   executeFiltered,
		NewResult: func() any { return new(popdata.Population) },
	})
}
