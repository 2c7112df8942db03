package hts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tellae/eqasim/internal/config"
	"github.com/tellae/eqasim/internal/popdata"
	"github.com/tellae/eqasim/internal/stage"
	"github.com/tellae/eqasim/internal/testutil"
)

func runTrips(t *testing.T, ctx context.Context, source string) *popdata.Survey {
	t.Helper()
	rt := stage.NewRuntime("data.hts.trips", map[string]any{
		config.KeyDataPath: testutil.WriteDataset(t),
		config.KeyHTS:      source,
	}, nil, 0, 1)
	result, err := executeTrips(ctx, rt)
	require.NoError(t, err)
	return result.(*popdata.Survey)
}

func TestTripsLoadsSelectedSurvey(t *testing.T) {
	ctx, _ := testutil.Context(t)

	survey := runTrips(t, ctx, "entd")

	assert.Equal(t, "entd", survey.Source)
	require.Len(t, survey.Persons, 5)

	first := survey.Persons[0]
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 40, first.Age)
	assert.Equal(t, popdata.SexMale, first.Sex)
	assert.True(t, first.Employed)
	require.Len(t, first.Trips, 2)
	assert.Equal(t, popdata.SurveyTrip{
		Index: 0, Purpose: "work", Mode: "car",
		DepartureTime: 28800, ArrivalTime: 30600,
	}, first.Trips[0])
	assert.Equal(t, 1, first.Trips[1].Index)
	assert.Equal(t, "home", first.Trips[1].Purpose)
}

func TestTripsIndexesChainsPerPerson(t *testing.T) {
	ctx, _ := testutil.Context(t)

	survey := runTrips(t, ctx, "entd")

	total := 0
	for _, person := range survey.Persons {
		for i, trip := range person.Trips {
			assert.Equal(t, i, trip.Index, "person %d", person.ID)
		}
		total += len(person.Trips)
	}
	assert.Equal(t, 11, total)
}

func TestTripsSwitchesSource(t *testing.T) {
	ctx, _ := testutil.Context(t)

	survey := runTrips(t, ctx, "egt")

	assert.Equal(t, "egt", survey.Source)
	require.Len(t, survey.Persons, 2)
	assert.Equal(t, 10, survey.Persons[0].ID)
	assert.Equal(t, popdata.SexFemale, survey.Persons[1].Sex)
	assert.Len(t, survey.Persons[1].Trips, 2)
}

func TestTripsRejectsUnknownSource(t *testing.T) {
	ctx, _ := testutil.Context(t)
	rt := stage.NewRuntime("data.hts.trips", map[string]any{
		config.KeyDataPath: t.TempDir(),
		config.KeyHTS:      "emp",
	}, nil, 0, 1)

	_, err := executeTrips(ctx, rt)

	require.ErrorContains(t, err, `unknown hts source "emp"`)
}

func TestValidateTripsTokenCoversBothFiles(t *testing.T) {
	dataPath := testutil.WriteDataset(t)
	vd := stage.NewValidator("data.hts.trips", map[string]any{
		config.KeyDataPath: dataPath,
		config.KeyHTS:      "entd",
	})

	token, err := validateTrips(context.Background(), vd)

	require.NoError(t, err)
	assert.Contains(t, token, "/")
}

func TestValidateTripsRequiresSurveyFiles(t *testing.T) {
	vd := stage.NewValidator("data.hts.trips", map[string]any{
		config.KeyDataPath: t.TempDir(),
		config.KeyHTS:      "entd",
	})

	_, err := validateTrips(context.Background(), vd)

	require.Error(t, err)
}
