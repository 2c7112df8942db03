package popdata

// SurveyTrip is one leg of a travel-survey person's day, times in seconds
// from midnight.
type SurveyTrip struct {
	Index         int     `cbor:"index"`
	Purpose       string  `cbor:"purpose"`
	Mode          string  `cbor:"mode"`
	DepartureTime float64 `cbor:"departure_time"`
	ArrivalTime   float64 `cbor:"arrival_time"`
}

// SurveyPerson is one travel-survey respondent with their reported trip
// chain.
type SurveyPerson struct {
	ID       int          `cbor:"id"`
	Age      int          `cbor:"age"`
	Sex      Sex          `cbor:"sex"`
	Employed bool         `cbor:"employed"`
	Trips    []SurveyTrip `cbor:"trips"`
}

// Survey is the result of the household travel survey stage.
type Survey struct {
	// Source names the survey the persons come from, entd or egt.
	Source  string         `cbor:"source"`
	Persons []SurveyPerson `cbor:"persons"`
}
