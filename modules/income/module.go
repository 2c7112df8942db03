// Package income provides the data.income.municipality stage: one annual
// income decile distribution per commune of the study perimeter, repaired
// from the Filosofi-style source files.
package income

import (
	"context"
	"path/filepath"

	"github.com/tellae/eqasim/internal/config"
	"github.com/tellae/eqasim/internal/fsutil"
	"github.com/tellae/eqasim/internal/popdata"
	"github.com/tellae/eqasim/internal/registry"
	"github.com/tellae/eqasim/internal/stage"
)

const (
	municipalityFile = "filosofi/income_municipality.csv"
	attributesFile   = "filosofi/income_attributes.csv"
)

var decileColumns = [9]string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8", "q9"}

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the municipality income stage with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStage(&stage.Descriptor{
		Name: "data.income.municipality",
		Configure: func(c *stage.Configurator) {
			c.Stage("data.spatial.codes")
			c.Config(config.KeyDataPath)
		},
		Validate:  validateMunicipality,
		Execute:   executeMunicipality,
		NewResult: func() any { return new(popdata.IncomeData) },
	})
}

func incomeFile(p stage.Params, name string) (string, error) {
	dataPath, err := p.String(config.KeyDataPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataPath, filepath.FromSlash(name)), nil
}

func validateMunicipality(ctx context.Context, vd *stage.Validator) (string, error) {
	municipalityPath, err := incomeFile(vd.Params, municipalityFile)
	if err != nil {
		return "", err
	}
	attributesPath, err := incomeFile(vd.Params, attributesFile)
	if err != nil {
		return "", err
	}
	municipalityToken, err := fsutil.FileToken(municipalityPath)
	if err != nil {
		return "", err
	}
	attributesToken, err := fsutil.FileToken(attributesPath)
	if err != nil {
		return "", err
	}
	return municipalityToken + "/" + attributesToken, nil
}
