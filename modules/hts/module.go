// Package hts provides the data.hts.trips stage: travel-survey persons
// with their reported trip chains, from the survey selected by the hts
// config key (entd or egt).
package hts

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

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the travel-survey stage with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStage(&stage.Descriptor{
		Name: "data.hts.trips",
		Configure: func(c *stage.Configurator) {
			c.Config(config.KeyDataPath)
			c.ConfigWithDefault(config.KeyHTS, "entd")
		},
		Validate:  validateTrips,
		Execute:   executeTrips,
		NewResult: func() any { return new(popdata.Survey) },
	})
}

// surveyFiles resolves the persons and trips files of the selected survey:
// <data_path>/<source>/persons.csv and <data_path>/<source>/trips.csv.
func surveyFiles(p stage.Params) (source, personsPath, tripsPath string, err error) {
	dataPath, err := p.String(config.KeyDataPath)
	if err != nil {
		return "", "", "", err
	}
	source, err = p.String(config.KeyHTS)
	if err != nil {
		return "", "", "", err
	}
	switch source {
	case "entd", "egt":
	default:
		return "", "", "", fmt.Errorf("unknown hts source %q (expected entd or egt)", source)
	}
	dir := filepath.Join(dataPath, source)
	return source, filepath.Join(dir, "persons.csv"), filepath.Join(dir, "trips.csv"), nil
}

func validateTrips(ctx context.Context, vd *stage.Validator) (string, error) {
	_, personsPath, tripsPath, err := surveyFiles(vd.Params)
	if err != nil {
		return "", err
	}
	personsToken, err := fsutil.FileToken(personsPath)
	if err != nil {
		return "", err
	}
	tripsToken, err := fsutil.FileToken(tripsPath)
	if err != nil {
		return "", err
	}
	return personsToken + "/" + tripsToken, nil
}

func executeTrips(ctx context.Context, rt *stage.Runtime) (any, error) {
	source, personsPath, tripsPath, err := surveyFiles(rt.Params)
	if err != nil {
		return nil, err
	}

	persons, err := readPersons(personsPath)
	if err != nil {
		return nil, err
	}
	if len(persons) == 0 {
		return nil, fmt.Errorf("survey %q has no persons", source)
	}

	if err := attachTrips(tripsPath, persons); err != nil {
		return nil, err
	}

	survey := &popdata.Survey{Source: source}
	for _, person := range persons {
		survey.Persons = append(survey.Persons, *person)
	}
	sort.Slice(survey.Persons, func(i, j int) bool {
		return survey.Persons[i].ID < survey.Persons[j].ID
	})

	trips := 0
	for _, person := range survey.Persons {
		trips += len(person.Trips)
	}
	ctxlog.FromContext(ctx).Debug("Loaded travel survey.",
		"stage", rt.Name(),
		"source", source,
		"persons", len(survey.Persons),
		"trips", trips)
	return survey, nil
}

func readPersons(path string) (map[int]*popdata.SurveyPerson, error) {
	table, err := csvio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := table.RequireColumns("person_id", "age", "sex", "employed"); err != nil {
		return nil, err
	}

	persons := make(map[int]*popdata.SurveyPerson, table.Len())
	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		person := &popdata.SurveyPerson{}
		if person.ID, err = row.Int("person_id"); err != nil {
			return nil, err
		}
		if person.Age, err = row.Int("age"); err != nil {
			return nil, err
		}
		sex, err := row.String("sex")
		if err != nil {
			return nil, err
		}
		switch sex {
		case "male":
			person.Sex = popdata.SexMale
		case "female":
			person.Sex = popdata.SexFemale
		default:
			return nil, fmt.Errorf("%s: person %d has sex %q (expected male or female)",
				filepath.Base(path), person.ID, sex)
		}
		if person.Employed, err = row.Bool("employed"); err != nil {
			return nil, err
		}
		if _, dup := persons[person.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate person %d", filepath.Base(path), person.ID)
		}
		persons[person.ID] = person
	}
	return persons, nil
}

// attachTrips appends each trip to its person, indexed in file order,
// which is the reported chronological order of the survey day.
func attachTrips(path string, persons map[int]*popdata.SurveyPerson) error {
	table, err := csvio.ReadFile(path)
	if err != nil {
		return err
	}
	if err := table.RequireColumns("person_id", "purpose", "mode", "departure_time", "arrival_time"); err != nil {
		return err
	}

	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		personID, err := row.Int("person_id")
		if err != nil {
			return err
		}
		person, ok := persons[personID]
		if !ok {
			return fmt.Errorf("%s: trip references unknown person %d", filepath.Base(path), personID)
		}

		trip := popdata.SurveyTrip{Index: len(person.Trips)}
		if trip.Purpose, err = row.String("purpose"); err != nil {
			return err
		}
		if trip.Mode, err = row.String("mode"); err != nil {
			return err
		}
		if trip.DepartureTime, err = row.Float("departure_time"); err != nil {
			return err
		}
		if trip.ArrivalTime, err = row.Float("arrival_time"); err != nil {
			return err
		}
		person.Trips = append(person.Trips, trip)
	}
	return nil
}
