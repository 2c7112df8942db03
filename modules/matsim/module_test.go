package matsim

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tellae/eqasim/internal/config"
	"github.com/tellae/eqasim/internal/popdata"
	"github.com/tellae/eqasim/internal/stage"
	"github.com/tellae/eqasim/internal/testutil"
)

func testResults() map[string]any {
	return map[string]any{
		"synthesis.population.sampled": &popdata.Population{
			Households: []popdata.Household{
				{ID: 1, CommuneID: "35238", Size: 2, ConsumptionUnits: 1.5, Weight: 5},
				{ID: 2, CommuneID: "35047", Size: 1, ConsumptionUnits: 1.0, Weight: 5},
			},
			Persons: []popdata.Person{
				{ID: 1, HouseholdID: 1, Age: 42, Sex: popdata.SexMale, Couple: true, Employed: true, Weight: 5},
				{ID: 2, HouseholdID: 1, Age: 40, Sex: popdata.SexFemale, Couple: true, Employed: true, Weight: 5},
				{ID: 3, HouseholdID: 2, Age: 70, Sex: popdata.SexMale, Weight: 5},
			},
		},
		"synthesis.population.matched": &popdata.Matching{Source: "entd", Matches: []popdata.Match{
			{PersonID: 1, SurveyPersonID: 1},
			{PersonID: 2, SurveyPersonID: 1},
			{PersonID: 3, SurveyPersonID: 2},
		}},
		"synthesis.population.income": &popdata.Incomes{Households: []popdata.HouseholdIncome{
			{HouseholdID: 1, Income: 2000.5, ConsumptionUnits: 1.5},
			{HouseholdID: 2, Income: 900, ConsumptionUnits: 1.0},
		}},
		"data.hts.trips": &popdata.Survey{Source: "entd", Persons: []popdata.SurveyPerson{
			{ID: 1, Age: 40, Sex: popdata.SexMale, Employed: true, Trips: []popdata.SurveyTrip{
				{Index: 0, Purpose: "work", Mode: "car", DepartureTime: 28800, ArrivalTime: 30600},
				{Index: 1, Purpose: "home", Mode: "car", DepartureTime: 61200, ArrivalTime: 63000},
			}},
			{ID: 2, Age: 70, Sex: popdata.SexMale},
		}},
		"data.spatial.codes": &popdata.MunicipalityRegister{Municipalities: []popdata.Municipality{
			{ID: "35238", Name: "Rennes", Department: "35", Region: "53", X: 351700, Y: 6789000},
			{ID: "35047", Name: "Bruz", Department: "35", Region: "53", X: 349500, Y: 6778300},
		}},
	}
}

func runOutput(t *testing.T, results map[string]any) *popdata.MATSimSummary {
	t.Helper()
	ctx, _ := testutil.Context(t)
	rt := stage.NewRuntime("matsim.output", map[string]any{
		config.KeyOutputPath:   filepath.Join(t.TempDir(), "matsim"),
		config.KeyOutputPrefix: "rennes_",
		config.KeyJavaMemory:   "10G",
	}, results, 0, 1)

	result, err := executeOutput(ctx, rt)
	require.NoError(t, err)
	return result.(*popdata.MATSimSummary)
}

func gunzip(t *testing.T, path string) string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	reader, err := gzip.NewReader(file)
	require.NoError(t, err)
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	return string(content)
}

func TestOutputWritesPlans(t *testing.T) {
	summary := runOutput(t, testResults())

	assert.Equal(t, 3, summary.Persons)
	plans := gunzip(t, summary.PopulationPath)

	assert.Contains(t, plans, `<!DOCTYPE population SYSTEM "http://www.matsim.org/files/dtd/population_v6.dtd">`)
	assert.Contains(t, plans, `<person id="1">`)
	assert.Contains(t, plans, `<attribute name="householdId" class="java.lang.Integer">1</attribute>`)
	assert.Contains(t, plans, `<attribute name="householdIncome" class="java.lang.Double">2000.50</attribute>`)
	assert.Contains(t, plans, `<activity type="home" end_time="08:00:00" x="351700" y="6789000">`)
	assert.Contains(t, plans, `<activity type="work" end_time="17:00:00" x="351700" y="6789000">`)
	assert.Contains(t, plans, `<leg mode="car">`)

	// Two persons share the two-trip chain, the third stays home.
	assert.Equal(t, 3, strings.Count(plans, `<plan selected="yes">`))
	assert.Equal(t, 4, strings.Count(plans, "<leg"))
	assert.Contains(t, plans, `<activity type="home" x="349500" y="6778300">`)
}

func TestOutputWritesConfigAndScript(t *testing.T) {
	summary := runOutput(t, testResults())

	configXML, err := os.ReadFile(summary.ConfigPath)
	require.NoError(t, err)
	assert.Contains(t, string(configXML), `<!DOCTYPE config SYSTEM "http://www.matsim.org/files/dtd/config_v2.dtd">`)
	assert.Contains(t, string(configXML), `<param name="inputPlansFile" value="rennes_population.xml.gz">`)

	script, err := os.ReadFile(summary.ScriptPath)
	require.NoError(t, err)
	assert.Contains(t, string(script), "-Xmx10G")
	assert.Contains(t, string(script), "rennes_config.xml")

	info, err := os.Stat(summary.ScriptPath)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111, "launcher script must be executable")
}

func TestOutputRequiresRegisteredCommunes(t *testing.T) {
	ctx, _ := testutil.Context(t)
	results := testResults()
	results["data.spatial.codes"] = &popdata.MunicipalityRegister{Municipalities: []popdata.Municipality{
		{ID: "35238", Name: "Rennes", Department: "35", Region: "53", X: 351700, Y: 6789000},
	}}
	rt := stage.NewRuntime("matsim.output", map[string]any{
		config.KeyOutputPath:   t.TempDir(),
		config.KeyOutputPrefix: "",
		config.KeyJavaMemory:   "14G",
	}, results, 0, 1)

	_, err := executeOutput(ctx, rt)

	require.ErrorContains(t, err, "commune 35047 outside the register")
}
