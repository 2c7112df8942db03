package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// CensusPath is where the miniature dataset keeps its census microdata,
// relative to the data path, mirroring an INSEE RP extraction layout.
const CensusPath = "rp_2019/individuals.csv"

// Miniature input dataset shared by stage and pipeline tests. Four
// communes around Rennes (and Nantes outside the perimeter), nine census
// persons in five households, two travel surveys, and Filosofi income
// files exercising the median-only and missing-commune repairs.
var datasetFiles = map[string]string{
	"spatial/municipalities.csv": `commune_id;name;department_id;region_id;x;y
35238;Rennes;35;53;351700.0;6789000.0
35047;Bruz;35;53;349500.0;6778300.0
35051;Cesson-Sevigne;35;53;356900.0;6790100.0
44109;Nantes;44;52;355800.0;6689200.0
`,

	// COUPLE: 1 partnered, 2 not. TACT: 11 employed. The last row has no
	// age and must be dropped by the cleaning stage.
	CensusPath: `COMMUNE;NUMMI;AGED;SEXE;COUPLE;TACT;IPONDI
35238;H1;42;1;1;11;5.0
35238;H1;40;2;1;11;5.0
35238;H1;10;2;2;;5.0
35238;H2;35;2;2;11;5.0
35238;H2;8;1;2;;5.0
35047;H3;70;1;2;21;5.0
35051;H4;28;1;2;11;5.0
44109;H5;50;1;2;11;5.0
35238;H9;;1;2;11;5.0
`,

	"entd/persons.csv": `person_id;age;sex;employed
1;40;male;true
2;36;female;true
3;12;male;false
4;70;male;false
5;29;male;true
`,

	"entd/trips.csv": `person_id;purpose;mode;departure_time;arrival_time
1;work;car;28800;30600
1;home;car;61200;63000
2;work;pt;29400;32100
2;shop;pt;59400;61200
2;home;pt;63000;64800
3;education;walk;30000;31200
3;home;walk;57600;58800
4;leisure;walk;36000;37800
4;home;walk;50400;52200
5;work;bike;32400;33600
5;home;bike;64800;66000
`,

	"egt/persons.csv": `person_id;age;sex;employed
10;45;male;true
11;33;female;false
`,

	"egt/trips.csv": `person_id;purpose;mode;departure_time;arrival_time
10;work;car;30000;33000
10;home;car;64000;66000
11;shop;pt;40000;42000
11;home;pt;46000;48000
`,

	// 35047 provides only its median; 35051 is absent entirely.
	"filosofi/income_municipality.csv": `commune_id;q1;q2;q3;q4;q5;q6;q7;q8;q9
35238;9600;12000;14400;16800;19200;21600;24000;28800;36000
35047;;;;;18000;;;;
44109;10800;13200;15600;18000;20400;22800;26400;31200;38400
`,

	// Single_wom is the Filosofi spelling of the single-woman modality.
	"filosofi/income_attributes.csv": `commune_id;attribute;modality;q1;q2;q3;q4;q5;q6;q7;q8;q9
35238;household_size;2_pers;8400;10800;13200;15600;18000;20400;22800;26400;33600
35238;household_type;Couple_with_child;12000;14400;16800;19200;21600;24000;26400;31200;39600
35238;household_type;Single_wom;7200;9600;12000;14400;16800;19200;21600;24000;30000
`,
}

// WriteDataset materializes the miniature input dataset in a temp
// directory and returns it, ready to be used as the pipeline's data_path.
func WriteDataset(t *testing.T) string {
	t.Helper()
	dataPath := t.TempDir()
	for name, content := range datasetFiles {
		path := filepath.Join(dataPath, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dataPath
}
