package popdata

// ExportSummary is the result of the CSV output stage: where the files
// went and how many rows each holds.
type ExportSummary struct {
	HouseholdsPath string `cbor:"households_path"`
	PersonsPath    string `cbor:"persons_path"`
	TripsPath      string `cbor:"trips_path"`
	Households     int    `cbor:"households"`
	Persons        int    `cbor:"persons"`
	Trips          int    `cbor:"trips"`
}

// MATSimSummary is the result of the MATSim output stage.
type MATSimSummary struct {
	PopulationPath string `cbor:"population_path"`
	ConfigPath     string `cbor:"config_path"`
	ScriptPath     string `cbor:"script_path"`
	Persons        int    `cbor:"persons"`
}
