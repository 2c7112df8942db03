package census

import (
	"context"
	"strconv"

	"github.com/tellae/eqasim/internal/ctxlog"
	"github.com/tellae/eqasim/internal/popdata"
	"github.com/tellae/eqasim/internal/stage"
)

// Census activity code for employed persons.
const activityEmployed = "11"

// executeCleaned types the raw rows, drops incomplete ones, and groups
// persons into households with derived attributes (size, OECD consumption
// units). Identifiers are assigned in file order, so the same extraction
// always produces the same population.
func executeCleaned(ctx context.Context, rt *stage.Runtime) (any, error) {
	extract, err := stage.ResultOf[*popdata.CensusExtract](rt, "data.census.raw")
	if err != nil {
		return nil, err
	}

	population := &popdata.Population{}
	householdIndex := make(map[string]int) // commune+NUMMI -> household slice index
	dropped := 0

	for _, row := range extract.Rows {
		person, ok := typeRow(row)
		if !ok {
			dropped++
			continue
		}

		key := row.CommuneID + "/" + row.HouseholdID
		idx, seen := householdIndex[key]
		if !seen {
			idx = len(population.Households)
			householdIndex[key] = idx
			population.Households = append(population.Households, popdata.Household{
				ID:        idx + 1,
				CommuneID: row.CommuneID,
				Weight:    person.Weight,
			})
		}

		person.ID = len(population.Persons) + 1
		person.HouseholdID = population.Households[idx].ID
		population.Persons = append(population.Persons, person)
	}

	// Derived household attributes need the full member list.
	ages := make(map[int][]int, len(population.Households))
	for _, person := range population.Persons {
		ages[person.HouseholdID] = append(ages[person.HouseholdID], person.Age)
	}
	for i := range population.Households {
		household := &population.Households[i]
		memberAges := ages[household.ID]
		household.Size = len(memberAges)
		household.ConsumptionUnits = popdata.ConsumptionUnits(memberAges)
	}

	ctxlog.FromContext(ctx).Debug("Cleaned census rows.",
		"stage", rt.Name(),
		"households", len(population.Households),
		"persons", len(population.Persons),
		"dropped_rows", dropped)
	return population, nil
}

// typeRow converts one raw row into a typed person. Rows missing the
// identifying or demographic fields are reported incomplete.
func typeRow(row popdata.CensusRow) (popdata.Person, bool) {
	var person popdata.Person

	if row.CommuneID == "" || row.HouseholdID == "" {
		return person, false
	}

	age, err := strconv.Atoi(row.Age)
	if err != nil || age < 0 {
		return person, false
	}
	person.Age = age

	switch row.Sex {
	case "1":
		person.Sex = popdata.SexMale
	case "2":
		person.Sex = popdata.SexFemale
	default:
		return person, false
	}

	weight, err := strconv.ParseFloat(row.Weight, 64)
	if err != nil || weight <= 0 {
		return person, false
	}
	person.Weight = weight

	person.Couple = row.Couple == "1"
	person.Employed = row.Activity == activityEmployed
	return person, true
}
