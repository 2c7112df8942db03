package census

import (
	"context"
	"fmt"

	"github.com/tellae/eqasim/internal/ctxlog"
	"github.com/tellae/eqasim/internal/popdata"
	"github.com/tellae/eqasim/internal/stage"
)

// executeFiltered keeps the households living inside the study perimeter.
// An empty intersection means the census extraction and the spatial filter
// disagree, which is a configuration error, not a valid empty pipeline.
func executeFiltered(ctx context.Context, rt *stage.Runtime) (any, error) {
	population, err := stage.ResultOf[*popdata.Population](rt, "data.census.cleaned")
	if err != nil {
		return nil, err
	}
	register, err := stage.ResultOf[*popdata.MunicipalityRegister](rt, "data.spatial.codes")
	if err != nil {
		return nil, err
	}

	inside := register.IDSet()
	kept := make(map[int]bool, len(population.Households))

	filtered := &popdata.Population{}
	for _, household := range population.Households {
		if !inside[household.CommuneID] {
			continue
		}
		kept[household.ID] = true
		filtered.Households = append(filtered.Households, household)
	}
	for _, person := range population.Persons {
		if kept[person.HouseholdID] {
			filtered.Persons = append(filtered.Persons, person)
		}
	}

	if len(filtered.Households) == 0 {
		return nil, fmt.Errorf("no census household lives inside the study perimeter of %d municipalities", len(register.Municipalities))
	}

	ctxlog.FromContext(ctx).Debug("Filtered census to study perimeter.",
		"stage", rt.Name(),
		"households", len(filtered.Households),
		"persons", len(filtered.Persons),
		"removed_households", len(population.Households)-len(filtered.Households))
	return filtered, nil
}
