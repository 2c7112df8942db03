package popdata

import (
	"fmt"
	"sort"
)

// Household types as derived from census attributes. The names follow the
// Filosofi TYPMENR vocabulary so typed income distributions can be looked
// up directly.
const (
	TypeSingleMan          = "Single_man"
	TypeSingleWoman        = "Single_woman"
	TypeCoupleWithoutChild = "Couple_without_child"
	TypeCoupleWithChild    = "Couple_with_child"
	TypeSingleParent       = "Single_parent"
	TypeComplex            = "complex_hh"
)

// SizeClass buckets a household size the way Filosofi keys its TAILLEM
// modalities: 1_pers .. 4_pers, then 5_pers_or_more.
func SizeClass(size int) string {
	if size >= 5 {
		return "5_pers_or_more"
	}
	return fmt.Sprintf("%d_pers", size)
}

// AgeClass buckets an age for survey matching: 0-14, 15-29, 30-44, 45-59,
// 60-74, 75 and older.
func AgeClass(age int) int {
	switch {
	case age < 15:
		return 0
	case age < 30:
		return 1
	case age < 45:
		return 2
	case age < 60:
		return 3
	case age < 75:
		return 4
	default:
		return 5
	}
}

// ConsumptionUnits computes the OECD-modified equivalence scale over the
// household members' ages: 1.0 for the first adult, 0.5 for each further
// member aged 14 or more, 0.3 for each child under 14.
func ConsumptionUnits(ages []int) float64 {
	adults, children := 0, 0
	for _, age := range ages {
		if age >= 14 {
			adults++
		} else {
			children++
		}
	}
	if adults == 0 {
		if children == 0 {
			return 0
		}
		// A household of minors still has a head of household.
		return 1.0 + 0.3*float64(children-1)
	}
	return 1.0 + 0.5*float64(adults-1) + 0.3*float64(children)
}

// HouseholdType classifies a household from its members:
//
//   - one person: Single_man or Single_woman;
//   - exactly two partnered members and nobody else: Couple_without_child;
//   - two partnered members plus only children (under 25, not partnered):
//     Couple_with_child;
//   - at least two unpartnered members whose oldest is 25-59 and whose
//     second oldest is under 25: Single_parent;
//   - anything else: complex_hh.
func HouseholdType(members []Person) string {
	size := len(members)
	if size == 0 {
		return TypeComplex
	}
	if size == 1 {
		if members[0].Sex == SexFemale {
			return TypeSingleWoman
		}
		return TypeSingleMan
	}

	partnered := 0
	children := 0
	var single []Person
	for _, person := range members {
		if person.Couple {
			partnered++
			continue
		}
		single = append(single, person)
		if person.Age < 25 {
			children++
		}
	}

	if partnered == 2 && size == 2 {
		return TypeCoupleWithoutChild
	}
	if partnered == 2 && children > 0 && size == children+2 {
		return TypeCoupleWithChild
	}

	if len(single) >= 2 {
		sort.Slice(single, func(i, j int) bool { return single[i].Age > single[j].Age })
		oldest, second := single[0].Age, single[1].Age
		if oldest >= 25 && oldest < 60 && second < 25 {
			return TypeSingleParent
		}
	}

	return TypeComplex
}
