package income

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/tellae/eqasim/internal/csvio"
	"github.com/tellae/eqasim/internal/ctxlog"
	"github.com/tellae/eqasim/internal/popdata"
	"github.com/tellae/eqasim/internal/stage"
)

// poolEntry is a commune that already has a full distribution, available
// for the two repairs.
type poolEntry struct {
	commune popdata.Municipality
	deciles [9]float64
}

// executeMunicipality loads the per-commune income deciles and repairs
// the holes the source leaves inside the study perimeter. Communes that
// only publish their median adopt the full distribution with the closest
// median; communes missing entirely adopt the distribution of the
// nearest commune by centroid distance.
func executeMunicipality(ctx context.Context, rt *stage.Runtime) (any, error) {
	register, err := stage.ResultOf[*popdata.MunicipalityRegister](rt, "data.spatial.codes")
	if err != nil {
		return nil, err
	}

	municipalityPath, err := incomeFile(rt.Params, municipalityFile)
	if err != nil {
		return nil, err
	}
	complete, medianOnly, err := readCommuneDistributions(municipalityPath, register)
	if err != nil {
		return nil, err
	}
	if len(complete) == 0 {
		return nil, fmt.Errorf("%s provides no complete distribution for the study perimeter", municipalityFile)
	}

	pool := make([]poolEntry, 0, len(register.Municipalities))
	data := &popdata.IncomeData{}
	for _, dist := range complete {
		commune, _ := register.ByID(dist.CommuneID)
		pool = append(pool, poolEntry{commune: commune, deciles: dist.Deciles})
		data.Communes = append(data.Communes, dist)
	}

	// Median-only communes pick among the complete distributions; the
	// communes they complete then serve the centroid repair as well.
	for _, partial := range medianOnly {
		adopted := closestMedian(partial.median, complete)
		commune, _ := register.ByID(partial.communeID)
		pool = append(pool, poolEntry{commune: commune, deciles: adopted})
		data.Communes = append(data.Communes, popdata.IncomeDistribution{
			CommuneID: partial.communeID,
			Deciles:   adopted,
		})
	}

	missing := missingCommunes(register, data.Communes)
	for _, commune := range missing {
		data.Communes = append(data.Communes, popdata.IncomeDistribution{
			CommuneID: commune.ID,
			Deciles:   nearestCentroid(commune, pool),
		})
	}

	sort.Slice(data.Communes, func(i, j int) bool {
		return data.Communes[i].CommuneID < data.Communes[j].CommuneID
	})

	attributesPath, err := incomeFile(rt.Params, attributesFile)
	if err != nil {
		return nil, err
	}
	data.Attributes, err = readAttributeDistributions(attributesPath, register)
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("Prepared income distributions.",
		"stage", rt.Name(),
		"communes", len(data.Communes),
		"median_repaired", len(medianOnly),
		"centroid_repaired", len(missing),
		"attributes", len(data.Attributes))
	return data, nil
}

type medianOnlyCommune struct {
	communeID string
	median    float64
}

// readCommuneDistributions splits the perimeter's rows into complete
// distributions and median-only ones. Rows publishing neither a median
// nor all nine deciles count as missing.
func readCommuneDistributions(path string, register *popdata.MunicipalityRegister) ([]popdata.IncomeDistribution, []medianOnlyCommune, error) {
	table, err := csvio.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	columns := append([]string{"commune_id"}, decileColumns[:]...)
	if err := table.RequireColumns(columns...); err != nil {
		return nil, nil, err
	}

	var complete []popdata.IncomeDistribution
	var medianOnly []medianOnlyCommune
	seen := make(map[string]bool)
	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		communeID, err := row.String("commune_id")
		if err != nil {
			return nil, nil, err
		}
		if !register.Contains(communeID) {
			continue
		}
		if seen[communeID] {
			return nil, nil, fmt.Errorf("%s: duplicate distribution for commune %s", municipalityFile, communeID)
		}
		seen[communeID] = true

		blanks := 0
		var deciles [9]float64
		for d, column := range decileColumns {
			if row.Empty(column) {
				blanks++
				continue
			}
			if deciles[d], err = row.Float(column); err != nil {
				return nil, nil, err
			}
		}
		switch {
		case blanks == 0:
			complete = append(complete, popdata.IncomeDistribution{CommuneID: communeID, Deciles: deciles})
		case !row.Empty("q5"):
			median, err := row.Float("q5")
			if err != nil {
				return nil, nil, err
			}
			medianOnly = append(medianOnly, medianOnlyCommune{communeID: communeID, median: median})
		}
	}

	sort.Slice(complete, func(i, j int) bool { return complete[i].CommuneID < complete[j].CommuneID })
	sort.Slice(medianOnly, func(i, j int) bool { return medianOnly[i].communeID < medianOnly[j].communeID })
	return complete, medianOnly, nil
}

// closestMedian returns the deciles of the complete distribution whose
// median is closest to the given one. The pool is sorted by commune, so
// ties resolve to the smallest commune identifier.
func closestMedian(median float64, pool []popdata.IncomeDistribution) [9]float64 {
	best := 0
	bestGap := math.Inf(1)
	for i, dist := range pool {
		gap := math.Abs(dist.Deciles[4] - median)
		if gap < bestGap {
			best, bestGap = i, gap
		}
	}
	return pool[best].Deciles
}

// nearestCentroid returns the deciles of the pool commune closest to the
// given one.
func nearestCentroid(commune popdata.Municipality, pool []poolEntry) [9]float64 {
	best := 0
	bestDistance := math.Inf(1)
	for i, entry := range pool {
		dx := entry.commune.X - commune.X
		dy := entry.commune.Y - commune.Y
		if distance := dx*dx + dy*dy; distance < bestDistance {
			best, bestDistance = i, distance
		}
	}
	return pool[best].deciles
}

// missingCommunes returns the register communes without a distribution,
// sorted by identifier.
func missingCommunes(register *popdata.MunicipalityRegister, covered []popdata.IncomeDistribution) []popdata.Municipality {
	coveredIDs := make(map[string]bool, len(covered))
	for _, dist := range covered {
		coveredIDs[dist.CommuneID] = true
	}
	var missing []popdata.Municipality
	for _, commune := range register.Municipalities {
		if !coveredIDs[commune.ID] {
			missing = append(missing, commune)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].ID < missing[j].ID })
	return missing
}

func readAttributeDistributions(path string, register *popdata.MunicipalityRegister) ([]popdata.AttributeDistribution, error) {
	table, err := csvio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	columns := append([]string{"commune_id", "attribute", "modality"}, decileColumns[:]...)
	if err := table.RequireColumns(columns...); err != nil {
		return nil, err
	}

	var attributes []popdata.AttributeDistribution
	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		dist := popdata.AttributeDistribution{}
		if dist.CommuneID, err = row.String("commune_id"); err != nil {
			return nil, err
		}
		if !register.Contains(dist.CommuneID) {
			continue
		}
		if dist.Attribute, err = row.String("attribute"); err != nil {
			return nil, err
		}
		if dist.Modality, err = row.String("modality"); err != nil {
			return nil, err
		}

		// Suppressed cells leave blank deciles; those rows carry no
		// usable distribution and are dropped.
		incomplete := false
		for d, column := range decileColumns {
			if row.Empty(column) {
				incomplete = true
				break
			}
			if dist.Deciles[d], err = row.Float(column); err != nil {
				return nil, err
			}
		}
		if incomplete {
			continue
		}
		attributes = append(attributes, dist)
	}
	return attributes, nil
}
