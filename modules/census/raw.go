package census

import (
	"context"
	"path/filepath"

	"github.com/tellae/eqasim/internal/config"
	"github.com/tellae/eqasim/internal/csvio"
	"github.com/tellae/eqasim/internal/ctxlog"
	"github.com/tellae/eqasim/internal/fsutil"
	"github.com/tellae/eqasim/internal/popdata"
	"github.com/tellae/eqasim/internal/stage"
)

// INSEE RP column names the extraction projects.
const (
	colCommune  = "COMMUNE"
	colNummi    = "NUMMI"
	colAge      = "AGED"
	colSex      = "SEXE"
	colCouple   = "COUPLE"
	colActivity = "TACT"
	colWeight   = "IPONDI"
)

func censusFile(p stage.Params) (string, error) {
	dataPath, err := p.String(config.KeyDataPath)
	if err != nil {
		return "", err
	}
	censusPath, err := p.String(config.KeyCensusPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataPath, filepath.FromSlash(censusPath)), nil
}

func validateRaw(ctx context.Context, vd *stage.Validator) (string, error) {
	path, err := censusFile(vd.Params)
	if err != nil {
		return "", err
	}
	return fsutil.FileToken(path)
}

// executeRaw extracts the person rows as-is; the cleaning stage owns
// typing and row dropping.
func executeRaw(ctx context.Context, rt *stage.Runtime) (any, error) {
	path, err := censusFile(rt.Params)
	if err != nil {
		return nil, err
	}

	table, err := csvio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := table.RequireColumns(colCommune, colNummi, colAge, colSex, colCouple, colActivity, colWeight); err != nil {
		return nil, err
	}

	extract := &popdata.CensusExtract{Rows: make([]popdata.CensusRow, 0, table.Len())}
	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		censusRow := popdata.CensusRow{}
		if censusRow.CommuneID, err = row.String(colCommune); err != nil {
			return nil, err
		}
		if censusRow.HouseholdID, err = row.String(colNummi); err != nil {
			return nil, err
		}
		if censusRow.Age, err = row.String(colAge); err != nil {
			return nil, err
		}
		if censusRow.Sex, err = row.String(colSex); err != nil {
			return nil, err
		}
		if censusRow.Couple, err = row.String(colCouple); err != nil {
			return nil, err
		}
		if censusRow.Activity, err = row.String(colActivity); err != nil {
			return nil, err
		}
		if censusRow.Weight, err = row.String(colWeight); err != nil {
			return nil, err
		}
		extract.Rows = append(extract.Rows, censusRow)
	}

	ctxlog.FromContext(ctx).Debug("Extracted census rows.", "stage", rt.Name(), "rows", len(extract.Rows))
	return extract, nil
}
