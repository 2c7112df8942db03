package synthesis

import (
	"context"
	"fmt"

	"github.com/tellae/eqasim/internal/config"
	"github.com/tellae/eqasim/internal/ctxlog"
	"github.com/tellae/eqasim/internal/popdata"
	"github.com/tellae/eqasim/internal/stage"
)

// executeSampled draws whole households from the filtered census
// population at sampling_rate. Household and person identifiers survive
// sampling unchanged so downstream stages can join on them.
func executeSampled(ctx context.Context, rt *stage.Runtime) (any, error) {
	population, err := stage.ResultOf[*popdata.Population](rt, "data.census.filtered")
	if err != nil {
		return nil, err
	}
	rate, err := rt.Params.Float(config.KeySamplingRate)
	if err != nil {
		return nil, err
	}
	if rate <= 0 || rate > 1 {
		return nil, fmt.Errorf("sampling_rate %v is outside (0, 1]", rate)
	}

	rng := rt.RNG()
	sampled := &popdata.Population{}
	kept := make(map[int]bool, len(population.Households))
	for _, household := range population.Households {
		if rng.Float64() < rate {
			kept[household.ID] = true
			sampled.Households = append(sampled.Households, household)
		}
	}
	if len(sampled.Households) == 0 {
		return nil, fmt.Errorf("sampling at rate %v left no households", rate)
	}
	for _, person := range population.Persons {
		if kept[person.HouseholdID] {
			sampled.Persons = append(sampled.Persons, person)
		}
	}

	ctxlog.FromContext(ctx).Debug("Sampled population.",
		"stage", rt.Name(),
		"rate", rate,
		"households", len(sampled.Households),
		"persons", len(sampled.Persons))
	return sampled, nil
}
