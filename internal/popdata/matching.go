package popdata

// Match links one synthetic person to the travel-survey person whose trip
// chain they inherit.
type Match struct {
	PersonID       int `cbor:"person_id"`
	SurveyPersonID int `cbor:"survey_person_id"`
}

// Matching is the result of the person matching stage, one entry per
// person of the sampled population, in population order.
type Matching struct {
	// Source names the survey the chains come from.
	Source  string  `cbor:"source"`
	Matches []Match `cbor:"matches"`
}
