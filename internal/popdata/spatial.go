package popdata

// Municipality is one commune of the municipality register, with the
// centroid coordinates used for nearest-commune lookups.
type Municipality struct {
	ID         string  `cbor:"id"`
	Name       string  `cbor:"name"`
	Department string  `cbor:"department"`
	Region     string  `cbor:"region"`
	X          float64 `cbor:"x"`
	Y          float64 `cbor:"y"`
}

// MunicipalityRegister is the result of the spatial codes stage: the
// communes inside the configured perimeter.
type MunicipalityRegister struct {
	Municipalities []Municipality `cbor:"municipalities"`
}

// Contains reports whether a commune is part of the register.
func (r *MunicipalityRegister) Contains(communeID string) bool {
	for _, m := range r.Municipalities {
		if m.ID == communeID {
			return true
		}
	}
	return false
}

// ByID returns the commune with the given identifier.
func (r *MunicipalityRegister) ByID(communeID string) (Municipality, bool) {
	for _, m := range r.Municipalities {
		if m.ID == communeID {
			return m, true
		}
	}
	return Municipality{}, false
}

// IDSet returns the commune identifiers as a set, for callers that probe
// membership once per household.
func (r *MunicipalityRegister) IDSet() map[string]bool {
	set := make(map[string]bool, len(r.Municipalities))
	for _, m := range r.Municipalities {
		set[m.ID] = true
	}
	return set
}
