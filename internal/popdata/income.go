package popdata

// IncomeDistribution is a commune's disposable income distribution as
// annual deciles q1..q9 in euros, Filosofi vocabulary.
type IncomeDistribution struct {
	CommuneID string     `cbor:"commune_id"`
	Deciles   [9]float64 `cbor:"deciles"`
}

// AttributeDistribution is an income distribution specific to one
// household attribute modality within a commune, e.g. attribute
// "household_size" modality "2_pers".
type AttributeDistribution struct {
	CommuneID string     `cbor:"commune_id"`
	Attribute string     `cbor:"attribute"`
	Modality  string     `cbor:"modality"`
	Deciles   [9]float64 `cbor:"deciles"`
}

// IncomeData is the result of the municipality income stage: one
// commune-wide distribution per commune of the perimeter, plus whatever
// attribute-specific distributions the source provides.
type IncomeData struct {
	Communes   []IncomeDistribution    `cbor:"communes"`
	Attributes []AttributeDistribution `cbor:"attributes"`
}

// CommuneDistribution returns the commune-wide distribution.
func (d *IncomeData) CommuneDistribution(communeID string) (IncomeDistribution, bool) {
	for _, dist := range d.Communes {
		if dist.CommuneID == communeID {
			return dist, true
		}
	}
	return IncomeDistribution{}, false
}

// HouseholdIncome is one household's imputed monthly income.
type HouseholdIncome struct {
	HouseholdID      int     `cbor:"household_id"`
	Income           float64 `cbor:"income"`
	ConsumptionUnits float64 `cbor:"consumption_units"`
}

// Incomes is the result of the income synthesis stage, one entry per
// household of the sampled population.
type Incomes struct {
	Households []HouseholdIncome `cbor:"households"`
}
