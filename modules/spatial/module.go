// Package spatial provides the data.spatial.codes stage: the register of
// municipalities inside the configured study perimeter.
package spatial

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/tellae/eqasim/internal/config"
	"github.com/tellae/eqasim/internal/csvio"
	"github.com/tellae/eqasim/internal/ctxlog"
	"github.com/tellae/eqasim/internal/fsutil"
	"github.com/tellae/eqasim/internal/popdata"
	"github.com/tellae/eqasim/internal/registry"
	"github.com/tellae/eqasim/internal/stage"
)

// registerFile is the municipality register under data_path: one row per
// commune with its department, region and centroid coordinates.
const registerFile = "spatial/municipalities.csv"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the spatial stages with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStage(&stage.Descriptor{
		Name: "data.spatial.codes",
		Configure: func(c *stage.Configurator) {
			c.Config(config.KeyDataPath)
			c.ConfigWithDefault(config.KeyRegions, []string{})
			c.ConfigWithDefault(config.KeyDepartments, []string{})
		},
		Validate:  validateCodes,
		Execute:   executeCodes,
		NewResult: func() any { return new(popdata.MunicipalityRegister) },
	})
}

func registerPath(p stage.Params) (string, error) {
	dataPath, err := p.String(config.KeyDataPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataPath, registerFile), nil
}

func validateCodes(ctx context.Context, vd *stage.Validator) (string, error) {
	path, err := registerPath(vd.Params)
	if err != nil {
		return "", err
	}
	return fsutil.FileToken(path)
}

func executeCodes(ctx context.Context, rt *stage.Runtime) (any, error) {
	path, err := registerPath(rt.Params)
	if err != nil {
		return nil, err
	}
	regions, err := rt.Strings(config.KeyRegions)
	if err != nil {
		return nil, err
	}
	departments, err := rt.Strings(config.KeyDepartments)
	if err != nil {
		return nil, err
	}

	table, err := csvio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := table.RequireColumns("commune_id", "name", "department_id", "region_id", "x", "y"); err != nil {
		return nil, err
	}

	regionSet := toSet(regions)
	departmentSet := toSet(departments)

	register := &popdata.MunicipalityRegister{}
	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		municipality, err := readMunicipality(row)
		if err != nil {
			return nil, err
		}
		if !insidePerimeter(municipality, regionSet, departmentSet) {
			continue
		}
		register.Municipalities = append(register.Municipalities, municipality)
	}

	if len(register.Municipalities) == 0 {
		return nil, fmt.Errorf("no municipality matches regions %v and departments %v", regions, departments)
	}

	sort.Slice(register.Municipalities, func(i, j int) bool {
		return register.Municipalities[i].ID < register.Municipalities[j].ID
	})

	ctxlog.FromContext(ctx).Debug("Selected study perimeter.",
		"stage", rt.Name(),
		"municipalities", len(register.Municipalities),
		"regions", regions,
		"departments", departments)
	return register, nil
}

func readMunicipality(row csvio.Row) (popdata.Municipality, error) {
	var m popdata.Municipality
	var err error
	if m.ID, err = row.String("commune_id"); err != nil {
		return m, err
	}
	if m.Name, err = row.String("name"); err != nil {
		return m, err
	}
	if m.Department, err = row.String("department_id"); err != nil {
		return m, err
	}
	if m.Region, err = row.String("region_id"); err != nil {
		return m, err
	}
	if m.X, err = row.Float("x"); err != nil {
		return m, err
	}
	if m.Y, err = row.Float("y"); err != nil {
		return m, err
	}
	return m, nil
}

// insidePerimeter applies the geographic filter: with no filters every
// commune passes; otherwise a commune passes when its region or its
// department is listed.
func insidePerimeter(m popdata.Municipality, regions, departments map[string]bool) bool {
	if len(regions) == 0 && len(departments) == 0 {
		return true
	}
	return regions[m.Region] || departments[m.Department]
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
