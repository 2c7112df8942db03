package synthesis

import (
	"context"
	"fmt"

	"github.com/tellae/eqasim/internal/ctxlog"
	"github.com/tellae/eqasim/internal/popdata"
	"github.com/tellae/eqasim/internal/stage"
)

// Matching cells, from the most specific to the least. A person draws
// among the survey persons of the first non-empty cell.
type fullCell struct {
	sex      popdata.Sex
	ageClass int
	employed bool
}

type sexAgeCell struct {
	sex      popdata.Sex
	ageClass int
}

// surveyIndex buckets survey person IDs by the matching attributes, one
// bucket map per relaxation level.
type surveyIndex struct {
	full   map[fullCell][]int
	sexAge map[sexAgeCell][]int
	sex    map[popdata.Sex][]int
	all    []int
}

func buildSurveyIndex(survey *popdata.Survey) *surveyIndex {
	index := &surveyIndex{
		full:   make(map[fullCell][]int),
		sexAge: make(map[sexAgeCell][]int),
		sex:    make(map[popdata.Sex][]int),
	}
	for _, person := range survey.Persons {
		ageClass := popdata.AgeClass(person.Age)
		full := fullCell{sex: person.Sex, ageClass: ageClass, employed: person.Employed}
		index.full[full] = append(index.full[full], person.ID)
		index.sexAge[sexAgeCell{sex: person.Sex, ageClass: ageClass}] = append(index.sexAge[sexAgeCell{sex: person.Sex, ageClass: ageClass}], person.ID)
		index.sex[person.Sex] = append(index.sex[person.Sex], person.ID)
		index.all = append(index.all, person.ID)
	}
	return index
}

// candidates returns the survey persons a synthetic person may draw from
// and the relaxation level that produced them: 0 matches sex, age class
// and employment; 1 drops employment; 2 drops the age class; 3 is the
// whole survey.
func (idx *surveyIndex) candidates(person popdata.Person) ([]int, int) {
	ageClass := popdata.AgeClass(person.Age)
	if c := idx.full[fullCell{sex: person.Sex, ageClass: ageClass, employed: person.Employed}]; len(c) > 0 {
		return c, 0
	}
	if c := idx.sexAge[sexAgeCell{sex: person.Sex, ageClass: ageClass}]; len(c) > 0 {
		return c, 1
	}
	if c := idx.sex[person.Sex]; len(c) > 0 {
		return c, 2
	}
	return idx.all, 3
}

// executeMatched assigns every sampled person the trip chain of a survey
// person with the same sex, age class and employment status, drawing
// uniformly among the candidates. Empty cells relax employment, then the
// age class, then sex.
func executeMatched(ctx context.Context, rt *stage.Runtime) (any, error) {
	population, err := stage.ResultOf[*popdata.Population](rt, "synthesis.population.sampled")
	if err != nil {
		return nil, err
	}
	survey, err := stage.ResultOf[*popdata.Survey](rt, "data.hts.trips")
	if err != nil {
		return nil, err
	}
	if len(survey.Persons) == 0 {
		return nil, fmt.Errorf("survey %q has no persons to match against", survey.Source)
	}

	index := buildSurveyIndex(survey)
	rng := rt.RNG()
	matching := &popdata.Matching{
		Source:  survey.Source,
		Matches: make([]popdata.Match, 0, len(population.Persons)),
	}

	var levels [4]int
	progress := rt.Progress(ctx, "Matching persons ...", len(population.Persons))
	for _, person := range population.Persons {
		candidates, level := index.candidates(person)
		levels[level]++
		matching.Matches = append(matching.Matches, popdata.Match{
			PersonID:       person.ID,
			SurveyPersonID: candidates[rng.Intn(len(candidates))],
		})
		progress.Advance(1)
	}
	progress.Done()

	ctxlog.FromContext(ctx).Debug("Matched persons against the travel survey.",
		"stage", rt.Name(),
		"source", survey.Source,
		"exact", levels[0],
		"relaxed_employment", levels[1],
		"relaxed_age", levels[2],
		"unconstrained", levels[3])
	return matching, nil
}
