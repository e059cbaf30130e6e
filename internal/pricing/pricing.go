package pricing

import (
	"math"

	"github.com/example/horse-share/internal/geo"
	"github.com/example/horse-share/internal/models"
)

// Rates holds the fare configuration. Prices are whole currency units.
type Rates struct {
	Base      float64
	PerKm     float64
	FlatPrice int
}

// DefaultRates mirror the production tariff.
var DefaultRates = Rates{Base: 5, PerKm: 3, FlatPrice: 15}

// Estimate computes round(base + perKm * km) for the pickup->destination
// leg. Without a usable destination the flat price applies.
func Estimate(pickup, dest *models.Coord, r Rates) int {
	if pickup == nil || dest == nil || !pickup.Valid() || !dest.Valid() {
		return r.FlatPrice
	}
	distKm := geo.Distance(pickup, dest) / 1000
	return int(math.Round(r.Base + distKm*r.PerKm))
}
