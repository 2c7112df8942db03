package census

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

func runRaw(t *testing.T, ctx context.Context) *popdata.CensusExtract {
	t.Helper()
	rt := stage.NewRuntime("data.census.raw", map[string]any{
		config.KeyDataPath:   testutil.WriteDataset(t),
		config.KeyCensusPath: testutil.CensusPath,
	}, nil, 0, 1)
	result, err := executeRaw(ctx, rt)
	require.NoError(t, err)
	return result.(*popdata.CensusExtract)
}

func runCleaned(t *testing.T, ctx context.Context, extract *popdata.CensusExtract) *popdata.Population {
	t.Helper()
	rt := stage.NewRuntime("data.census.cleaned", nil,
		map[string]any{"data.census.raw": extract}, 0, 1)
	result, err := executeCleaned(ctx, rt)
	require.NoError(t, err)
	return result.(*popdata.Population)
}

func TestRawExtractsEveryRow(t *testing.T) {
	ctx, _ := testutil.Context(t)

	extract := runRaw(t, ctx)

	require.Len(t, extract.Rows, 9)
	first := extract.Rows[0]
	assert.Equal(t, "35238", first.CommuneID)
	assert.Equal(t, "H1", first.HouseholdID)
	assert.Equal(t, "42", first.Age)
	assert.Equal(t, "1", first.Sex)
	assert.Equal(t, "11", first.Activity)
	// The incomplete row survives extraction untouched.
	assert.Equal(t, "", extract.Rows[8].Age)
}

func TestValidateRawRequiresCensusFile(t *testing.T) {
	ctx, _ := testutil.Context(t)
	vd := stage.NewValidator("data.census.raw", map[string]any{
		config.KeyDataPath:   t.TempDir(),
		config.KeyCensusPath: testutil.CensusPath,
	})

	_, err := validateRaw(ctx, vd)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "individuals.csv")
}

func TestCleanedTypesAndGroups(t *testing.T) {
	ctx, _ := testutil.Context(t)

	population := runCleaned(t, ctx, runRaw(t, ctx))

	// Nine raw rows, one incomplete (no age) dropped.
	require.Len(t, population.Persons, 8)
	require.Len(t, population.Households, 5)

	h1 := population.Households[0]
	assert.Equal(t, 1, h1.ID)
	assert.Equal(t, "35238", h1.CommuneID)
	assert.Equal(t, 3, h1.Size)
	// Two adults and one child under 14: 1.0 + 0.5 + 0.3.
	assert.InDelta(t, 1.8, h1.ConsumptionUnits, 1e-9)
	assert.InDelta(t, 5.0, h1.Weight, 1e-9)

	members := population.PersonsOf(h1.ID)
	require.Len(t, members, 3)
	assert.Equal(t, popdata.SexMale, members[0].Sex)
	assert.True(t, members[0].Couple)
	assert.True(t, members[0].Employed)
	assert.Equal(t, popdata.SexFemale, members[2].Sex)
	assert.False(t, members[2].Couple)
	assert.False(t, members[2].Employed)

	// Person IDs are dense and file-ordered.
	for i, person := range population.Persons {
		assert.Equal(t, i+1, person.ID)
	}
}

func TestCleanedIsDeterministic(t *testing.T) {
	ctx, _ := testutil.Context(t)
	extract := runRaw(t, ctx)

	first := runCleaned(t, ctx, extract)
	second := runCleaned(t, ctx, extract)

	assert.Equal(t, first, second)
}

func TestFilteredKeepsPerimeterHouseholds(t *testing.T) {
	ctx, _ := testutil.Context(t)
	population := runCleaned(t, ctx, runRaw(t, ctx))
	register := &popdata.MunicipalityRegister{Municipalities: []popdata.Municipality{
		{ID: "35238"}, {ID: "35047"}, {ID: "35051"},
	}}

	rt := stage.NewRuntime("data.census.filtered", nil, map[string]any{
		"data.census.cleaned": population,
		"data.spatial.codes":  register,
	}, 0, 1)
	result, err := executeFiltered(ctx, rt)
	require.NoError(t, err)
	filtered := result.(*popdata.Population)

	// The Nantes household is outside the perimeter.
	assert.Len(t, filtered.Households, 4)
	assert.Len(t, filtered.Persons, 7)
	for _, household := range filtered.Households {
		assert.NotEqual(t, "44109", household.CommuneID)
	}
}

func TestFilteredEmptyPerimeterIsError(t *testing.T) {
	ctx, _ := testutil.Context(t)
	population := runCleaned(t, ctx, runRaw(t, ctx))
	register := &popdata.MunicipalityRegister{Municipalities: []popdata.Municipality{
		{ID: "75056"},
	}}

	rt := stage.NewRuntime("data.census.filtered", nil, map[string]any{
		"data.census.cleaned": population,
		"data.spatial.codes":  register,
	}, 0, 1)
	_, err := executeFiltered(ctx, rt)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no census household")
}
