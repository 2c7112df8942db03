package synthesis

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/tellae/eqasim/internal/popdata"
	"github.com/tellae/eqasim/internal/stage"
)

// maximumIncomeFactor bounds the open top stratum: the 10th stratum ends
// at 1.2 times the highest monthly decile.
const maximumIncomeFactor = 1.2

// attributeKey addresses one typed income distribution.
type attributeKey struct {
	communeID string
	attribute string
	modality  string
}

// filosofiModality maps a household type to its Filosofi spelling, which
// truncates the single-woman modality to Single_wom.
func filosofiModality(householdType string) string {
	if householdType == popdata.TypeSingleWoman {
		return "Single_wom"
	}
	return householdType
}

// monthlyCentiles turns annual deciles into the bounds of ten monthly
// income strata: 0, the nine monthly deciles, then the top bound.
func monthlyCentiles(deciles [9]float64) [11]float64 {
	var centiles [11]float64
	top := 0.0
	for i, annual := range deciles {
		monthly := annual / 12
		centiles[i+1] = monthly
		if monthly > top {
			top = monthly
		}
	}
	centiles[10] = top * maximumIncomeFactor
	return centiles
}

// executeIncome imputes a monthly income to every sampled household. A
// household draws one of the ten strata of its commune's distribution and
// a uniform income within it, scaled by its consumption units. Typed
// distributions take precedence when the commune publishes them: the
// household type modality first, the household size modality second, the
// commune-wide distribution last.
func executeIncome(ctx context.Context, rt *stage.Runtime) (any, error) {
	incomeData, err := stage.ResultOf[*popdata.IncomeData](rt, "data.income.municipality")
	if err != nil {
		return nil, err
	}
	population, err := stage.ResultOf[*popdata.Population](rt, "synthesis.population.sampled")
	if err != nil {
		return nil, err
	}

	typed := make(map[attributeKey][9]float64, len(incomeData.Attributes))
	for _, dist := range incomeData.Attributes {
		typed[attributeKey{dist.CommuneID, dist.Attribute, dist.Modality}] = dist.Deciles
	}
	members := population.PersonsByHousehold()

	byCommune := make(map[string][]popdata.Household)
	for _, household := range population.Households {
		byCommune[household.CommuneID] = append(byCommune[household.CommuneID], household)
	}
	communes := make([]string, 0, len(byCommune))
	for communeID := range byCommune {
		communes = append(communes, communeID)
	}
	sort.Strings(communes)

	// Each commune draws from its own sub-seed so the fan-out stays
	// deterministic whatever the worker interleaving.
	rng := rt.RNG()
	seeds := make([]int64, len(communes))
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	imputed := make([][]popdata.HouseholdIncome, len(communes))
	progress := rt.Progress(ctx, "Imputing income ...", len(communes))
	err = rt.ForEach(ctx, len(communes), func(ctx context.Context, i int) error {
		communeID := communes[i]
		commune, ok := incomeData.CommuneDistribution(communeID)
		if !ok {
			return fmt.Errorf("no income distribution for commune %s", communeID)
		}

		rng := rand.New(rand.NewSource(seeds[i]))
		households := byCommune[communeID]
		incomes := make([]popdata.HouseholdIncome, 0, len(households))
		for _, household := range households {
			deciles := commune.Deciles
			householdType := filosofiModality(popdata.HouseholdType(members[household.ID]))
			if d, ok := typed[attributeKey{communeID, "household_type", householdType}]; ok {
				deciles = d
			} else if d, ok := typed[attributeKey{communeID, "household_size", popdata.SizeClass(household.Size)}]; ok {
				deciles = d
			}

			centiles := monthlyCentiles(deciles)
			stratum := rng.Intn(10)
			lower, upper := centiles[stratum], centiles[stratum+1]
			income := lower + rng.Float64()*(upper-lower)
			incomes = append(incomes, popdata.HouseholdIncome{
				HouseholdID:      household.ID,
				Income:           income * household.ConsumptionUnits,
				ConsumptionUnits: household.ConsumptionUnits,
			})
		}
		imputed[i] = incomes
		progress.Advance(1)
		return nil
	})
	if err != nil {
		return nil, err
	}
	progress.Done()

	result := &popdata.Incomes{}
	for _, incomes := range imputed {
		result.Households = append(result.Households, incomes...)
	}
	sort.Slice(result.Households, func(i, j int) bool {
		return result.Households[i].HouseholdID < result.Households[j].HouseholdID
	})
	return result, nil
}
