// Package source produces synthetic vehicle readings and formats their
// coordinates for display.
package source

import (
	"math/rand"
	"time"

	"fleet-monitor/telemetry/internal/domain"
)

// Sampling ranges for generated readings.
const (
	minTemperature = 15.0
	maxTemperature = 40.0
	minHumidity    = 20.0
	maxHumidity    = 90.0

	// roughly the Iberian peninsula
	minLongitude = -9.5
	maxLongitude = 3.3
	minLatitude  = 36.0
	maxLatitude  = 43.8
)

type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng, now: time.Now}
}

// Next returns a fresh reading stamped with the current time.
func (g *Generator) Next() domain.Reading {
	return domain.Reading{
		Timestamp:   g.now().Unix(),
		Temperature: g.uniform(minTemperature, maxTemperature),
		Longitude:   g.uniform(minLongitude, maxLongitude),
		Latitude:    g.uniform(minLatitude, maxLatitude),
		Humidity:    g.uniform(minHumidity, maxHumidity),
	}
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}
