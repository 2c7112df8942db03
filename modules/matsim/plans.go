package matsim

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/klauspost/compress/gzip"

	"github.com/tellae/eqasim/internal/popdata"
)

// xmlWriter wraps an xml.Encoder with a sticky error so a document can be
// emitted as a flat sequence of calls.
type xmlWriter struct {
	enc *xml.Encoder
	err error
}

func newXMLWriter(enc *xml.Encoder) *xmlWriter {
	w := &xmlWriter{enc: enc}
	w.token(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="utf-8"`)})
	return w
}

func (w *xmlWriter) token(t xml.Token) {
	if w.err == nil {
		w.err = w.enc.EncodeToken(t)
	}
}

func (w *xmlWriter) doctype(root, dtd string) {
	w.token(xml.Directive(fmt.Sprintf("DOCTYPE %s SYSTEM %q", root, dtd)))
}

func (w *xmlWriter) start(name string, attrs ...xml.Attr) {
	w.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *xmlWriter) end(name string) {
	w.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *xmlWriter) empty(name string, attrs ...xml.Attr) {
	w.start(name, attrs...)
	w.end(name)
}

func (w *xmlWriter) element(name, text string, attrs ...xml.Attr) {
	w.start(name, attrs...)
	w.token(xml.CharData(text))
	w.end(name)
}

func (w *xmlWriter) flush() error {
	if w.err != nil {
		return w.err
	}
	return w.enc.Flush()
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// formatTime renders seconds from midnight as HH:MM:SS. MATSim accepts
// hours beyond 24 for activities wrapping past midnight.
func formatTime(seconds float64) string {
	total := int(math.Round(seconds))
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total/60%60, total%60)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// writePopulation emits the population_v6 plans file. Every activity sits
// at the household's commune centroid; the pipeline does not assign
// secondary locations.
func writePopulation(path string, population *popdata.Population, matching *popdata.Matching, incomes *popdata.Incomes, survey *popdata.Survey, register *popdata.MunicipalityRegister) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer file.Close()
	gz := gzip.NewWriter(file)

	households := make(map[int]popdata.Household, len(population.Households))
	for _, household := range population.Households {
		households[household.ID] = household
	}
	incomeOf := make(map[int]float64, len(incomes.Households))
	for _, income := range incomes.Households {
		incomeOf[income.HouseholdID] = income.Income
	}
	surveyPersons := make(map[int]popdata.SurveyPerson, len(survey.Persons))
	for _, person := range survey.Persons {
		surveyPersons[person.ID] = person
	}

	enc := xml.NewEncoder(gz)
	enc.Indent("", "    ")
	w := newXMLWriter(enc)
	w.doctype("population", "http://www.matsim.org/files/dtd/population_v6.dtd")
	w.start("population")

	for i, person := range population.Persons {
		household, ok := households[person.HouseholdID]
		if !ok {
			return fmt.Errorf("person %d belongs to unknown household %d", person.ID, person.HouseholdID)
		}
		home, ok := register.ByID(household.CommuneID)
		if !ok {
			return fmt.Errorf("household %d lives in commune %s outside the register",
				household.ID, household.CommuneID)
		}
		match := matching.Matches[i]
		if match.PersonID != person.ID {
			return fmt.Errorf("matching out of order: entry %d is person %d, population has %d",
				i, match.PersonID, person.ID)
		}
		source, ok := surveyPersons[match.SurveyPersonID]
		if !ok {
			return fmt.Errorf("person %d matches unknown survey person %d", person.ID, match.SurveyPersonID)
		}

		w.start("person", attr("id", strconv.Itoa(person.ID)))
		w.start("attributes")
		w.element("attribute", strconv.Itoa(person.HouseholdID),
			attr("name", "householdId"), attr("class", "java.lang.Integer"))
		w.element("attribute", strconv.Itoa(person.Age),
			attr("name", "age"), attr("class", "java.lang.Integer"))
		w.element("attribute", string(person.Sex),
			attr("name", "sex"), attr("class", "java.lang.String"))
		w.element("attribute", strconv.FormatBool(person.Employed),
			attr("name", "employed"), attr("class", "java.lang.Boolean"))
		if income, ok := incomeOf[person.HouseholdID]; ok {
			w.element("attribute", strconv.FormatFloat(income, 'f', 2, 64),
				attr("name", "householdIncome"), attr("class", "java.lang.Double"))
		}
		w.end("attributes")

		writePlan(w, home, source.Trips)
		w.end("person")
	}

	w.end("population")
	if err := w.flush(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("compressing %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// writePlan emits the selected plan: the day starts and ends at home,
// with one activity per trip in between. A person without trips stays
// home all day.
func writePlan(w *xmlWriter, home popdata.Municipality, trips []popdata.SurveyTrip) {
	w.start("plan", attr("selected", "yes"))
	coord := []xml.Attr{attr("x", formatCoord(home.X)), attr("y", formatCoord(home.Y))}

	if len(trips) == 0 {
		w.empty("activity", append([]xml.Attr{attr("type", "home")}, coord...)...)
		w.end("plan")
		return
	}

	for i, trip := range trips {
		activityType := "home"
		if i > 0 {
			activityType = trips[i-1].Purpose
		}
		w.empty("activity", append([]xml.Attr{
			attr("type", activityType),
			attr("end_time", formatTime(trip.DepartureTime)),
		}, coord...)...)
		w.empty("leg", attr("mode", trip.Mode))
	}
	last := trips[len(trips)-1]
	w.empty("activity", append([]xml.Attr{attr("type", last.Purpose)}, coord...)...)
	w.end("plan")
}

// writeConfig emits a minimal config_v2 file pointing the plans module at
// the generated population.
func writeConfig(path, plansFile string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer file.Close()

	enc := xml.NewEncoder(file)
	enc.Indent("", "    ")
	w := newXMLWriter(enc)
	w.doctype("config", "http://www.matsim.org/files/dtd/config_v2.dtd")
	w.start("config")

	w.start("module", attr("name", "plans"))
	w.empty("param", attr("name", "inputPlansFile"), attr("value", plansFile))
	w.end("module")

	w.start("module", attr("name", "controler"))
	w.empty("param", attr("name", "outputDirectory"), attr("value", "simulation_output"))
	w.empty("param", attr("name", "firstIteration"), attr("value", "0"))
	w.empty("param", attr("name", "lastIteration"), attr("value", "60"))
	w.end("module")

	w.end("config")
	if err := w.flush(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
