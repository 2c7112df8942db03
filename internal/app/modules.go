package app

import (
	"github.com/tellae/eqasim/internal/registry"
	"github.com/tellae/eqasim/modules/census"
	"github.com/tellae/eqasim/modules/hts"
	"github.com/tellae/eqasim/modules/income"
	"github.com/tellae/eqasim/modules/matsim"
	"github.com/tellae/eqasim/modules/spatial"
	"github.com/tellae/eqasim/modules/synthesis"
)

// coreModules is the definitive list of all stage modules that are compiled
// into the eqasim binary.
var coreModules = []registry.Module{
	&spatial.Module{},
	&census.Module{},
	&hts.Module{},
	&income.Module{},
	&synthesis.Module{},
	&matsim.Module{},
}
