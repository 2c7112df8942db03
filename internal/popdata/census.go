package popdata

// Sex is a person's sex as coded in the census and the travel surveys.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// CensusRow is one person row of the raw census extraction, every value
// still a string in the source vocabulary (SEXE 1/2, COUPLE 1/2, TACT
// activity codes). Typing and row dropping happen in the cleaning stage.
type CensusRow struct {
	CommuneID   string `cbor:"commune_id"`
	HouseholdID string `cbor:"household_id"`
	Age         string `cbor:"age"`
	Sex         string `cbor:"sex"`
	Couple      string `cbor:"couple"`
	Activity    string `cbor:"activity"`
	Weight      string `cbor:"weight"`
}

// CensusExtract is the result of the raw census stage.
type CensusExtract struct {
	Rows []CensusRow `cbor:"rows"`
}

// Person is one cleaned census person.
type Person struct {
	ID          int     `cbor:"id"`
	HouseholdID int     `cbor:"household_id"`
	Age         int     `cbor:"age"`
	Sex         Sex     `cbor:"sex"`
	Couple      bool    `cbor:"couple"`
	Employed    bool    `cbor:"employed"`
	Weight      float64 `cbor:"weight"`
}

// Household is one cleaned census household.
type Household struct {
	ID               int     `cbor:"id"`
	CommuneID        string  `cbor:"commune_id"`
	Size             int     `cbor:"size"`
	ConsumptionUnits float64 `cbor:"consumption_units"`
	Weight           float64 `cbor:"weight"`
}

// Population holds households and their persons. Persons of one household
// are contiguous and ordered by person ID; stages rely on both.
type Population struct {
	Households []Household `cbor:"households"`
	Persons    []Person    `cbor:"persons"`
}

// PersonsOf returns the persons belonging to one household.
func (p *Population) PersonsOf(householdID int) []Person {
	var members []Person
	for _, person := range p.Persons {
		if person.HouseholdID == householdID {
			members = append(members, person)
		}
	}
	return members
}

// PersonsByHousehold groups all persons by household ID in one pass.
func (p *Population) PersonsByHousehold() map[int][]Person {
	grouped := make(map[int][]Person, len(p.Households))
	for _, person := range p.Persons {
		grouped[person.HouseholdID] = append(grouped[person.HouseholdID], person)
	}
	return grouped
}
