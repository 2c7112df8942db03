package synthesis

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/tellae/eqasim/internal/config"
	"github.com/tellae/eqasim/internal/csvio"
	"github.com/tellae/eqasim/internal/ctxlog"
	"github.com/tellae/eqasim/internal/fsutil"
	"github.com/tellae/eqasim/internal/popdata"
	"github.com/tellae/eqasim/internal/stage"
)

// outputFiles resolves the three export paths under output_path, applying
// the optional filename prefix.
func outputFiles(p stage.Params) (households, persons, trips string, err error) {
	outputPath, err := p.String(config.KeyOutputPath)
	if err != nil {
		return "", "", "", err
	}
	prefix, err := p.String(config.KeyOutputPrefix)
	if err != nil {
		return "", "", "", err
	}
	if err := fsutil.EnsureDir(outputPath); err != nil {
		return "", "", "", err
	}
	households = filepath.Join(outputPath, prefix+"households.csv")
	persons = filepath.Join(outputPath, prefix+"persons.csv")
	trips = filepath.Join(outputPath, prefix+"trips.csv")
	return households, persons, trips, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// executeOutput writes the synthetic population as three CSV files:
// households with their imputed income, persons with their matched survey
// person, and the trips inherited through the matching.
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

	if len(matching.Matches) != len(population.Persons) {
		return nil, fmt.Errorf("matching covers %d persons, population has %d",
			len(matching.Matches), len(population.Persons))
	}
	incomeOf := make(map[int]popdata.HouseholdIncome, len(incomes.Households))
	for _, income := range incomes.Households {
		incomeOf[income.HouseholdID] = income
	}
	surveyPersons := make(map[int]popdata.SurveyPerson, len(survey.Persons))
	for _, person := range survey.Persons {
		surveyPersons[person.ID] = person
	}

	summary := &popdata.ExportSummary{}
	summary.HouseholdsPath, summary.PersonsPath, summary.TripsPath, err = outputFiles(rt.Params)
	if err != nil {
		return nil, err
	}

	if err := writeHouseholds(summary.HouseholdsPath, population, incomeOf); err != nil {
		return nil, err
	}
	summary.Households = len(population.Households)

	trips, err := writePersonsAndTrips(summary, population, matching, surveyPersons)
	if err != nil {
		return nil, err
	}
	summary.Persons = len(population.Persons)
	summary.Trips = trips

	ctxlog.FromContext(ctx).Info("Wrote synthetic population.",
		"stage", rt.Name(),
		"households", summary.Households,
		"persons", summary.Persons,
		"trips", summary.Trips,
		"path", filepath.Dir(summary.HouseholdsPath))
	return summary, nil
}

func writeHouseholds(path string, population *popdata.Population, incomeOf map[int]popdata.HouseholdIncome) error {
	writer, err := csvio.NewWriter(path, []string{
		"household_id", "commune_id", "household_size", "consumption_units", "weight", "income",
	})
	if err != nil {
		return err
	}
	for _, household := range population.Households {
		income, ok := incomeOf[household.ID]
		if !ok {
			writer.Close()
			return fmt.Errorf("no imputed income for household %d", household.ID)
		}
		err := writer.Write(
			strconv.Itoa(household.ID),
			household.CommuneID,
			strconv.Itoa(household.Size),
			formatFloat(household.ConsumptionUnits),
			formatFloat(household.Weight),
			strconv.FormatFloat(income.Income, 'f', 2, 64),
		)
		if err != nil {
			writer.Close()
			return err
		}
	}
	return writer.Close()
}

func writePersonsAndTrips(summary *popdata.ExportSummary, population *popdata.Population, matching *popdata.Matching, surveyPersons map[int]popdata.SurveyPerson) (int, error) {
	persons, err := csvio.NewWriter(summary.PersonsPath, []string{
		"person_id", "household_id", "age", "sex", "couple", "employed", "survey_person_id",
	})
	if err != nil {
		return 0, err
	}
	defer persons.Close()

	trips, err := csvio.NewWriter(summary.TripsPath, []string{
		"person_id", "trip_index", "purpose", "mode", "departure_time", "arrival_time",
	})
	if err != nil {
		return 0, err
	}
	defer trips.Close()

	for i, person := range population.Persons {
		match := matching.Matches[i]
		if match.PersonID != person.ID {
			return 0, fmt.Errorf("matching out of order: entry %d is person %d, population has %d",
				i, match.PersonID, person.ID)
		}
		source, ok := surveyPersons[match.SurveyPersonID]
		if !ok {
			return 0, fmt.Errorf("person %d matches unknown survey person %d", person.ID, match.SurveyPersonID)
		}

		err := persons.Write(
			strconv.Itoa(person.ID),
			strconv.Itoa(person.HouseholdID),
			strconv.Itoa(person.Age),
			string(person.Sex),
			formatBool(person.Couple),
			formatBool(person.Employed),
			strconv.Itoa(match.SurveyPersonID),
		)
		if err != nil {
			return 0, err
		}

		for _, trip := range source.Trips {
			err := trips.Write(
				strconv.Itoa(person.ID),
				strconv.Itoa(trip.Index),
				trip.Purpose,
				trip.Mode,
				formatFloat(trip.DepartureTime),
				formatFloat(trip.ArrivalTime),
			)
			if err != nil {
				return 0, err
			}
		}
	}

	if err := persons.Close(); err != nil {
		return 0, err
	}
	written := trips.Rows()
	if err := trips.Close(); err != nil {
		return 0, err
	}
	return written, nil
}
