package strategy

import (
	"math"
	"math/big"
	"sort"

	"github.com/shopspring/decimal"
)

// MeanDeviation reports the arithmetic mean and the population standard
// deviation, both rounded to two decimals.
type MeanDeviation struct{}

func (MeanDeviation) Name() Kind { return KindMeanDeviation }

func (MeanDeviation) Calculate(temperatures, humidities []float64) (Result, error) {
	return summarize(KindMeanDeviation, temperatures, humidities, func(_ string, data []float64) Summary {
		mean, stddev := meanStdDev(data)
		return Summary{Mean: round2(mean), StdDev: round2(stddev)}
	})
}

func meanStdDev(data []float64) (float64, float64) {
	var sum float64
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	var sq float64
	for _, v := range data {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(data)))
}

// round2 rounds the exact binary value of v, ties to even. 2.675 is stored
// as 2.67499999... and so rounds down.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	exact := new(big.Rat).SetFloat64(v)
	return decimal.NewFromBigRat(exact, 40).RoundBank(2).InexactFloat64()
}

// MaxMin reports the unrounded extremes of each series.
type MaxMin struct{}

func (MaxMin) Name() Kind { return KindMaxMin }

func (MaxMin) Calculate(temperatures, humidities []float64) (Result, error) {
	return summarize(KindMaxMin, temperatures, humidities, func(_ string, data []float64) Summary {
		hi, lo := data[0], data[0]
		for _, v := range data[1:] {
			if v > hi {
				hi = v
			}
			if v < lo {
				lo = v
			}
		}
		return Summary{Max: hi, Min: lo}
	})
}

// Quantiles reports Q1, Q2 and Q3 by nearest rank without interpolation.
type Quantiles struct{}

func (Quantiles) Name() Kind { return KindQuantiles }

func (Quantiles) Calculate(temperatures, humidities []float64) (Result, error) {
	return summarize(KindQuantiles, temperatures, humidities, func(_ string, data []float64) Summary {
		sorted := make([]float64, len(data))
		copy(sorted, data)
		sort.Float64s(sorted)

		n := len(sorted)
		return Summary{
			Q1: sorted[QuantileIndex(0.25, n)],
			Q2: sorted[QuantileIndex(0.50, n)],
			Q3: sorted[QuantileIndex(0.75, n)],
		}
	})
}

// QuantileIndex is floor(p*(n-1)), the index of quantile p in a sorted
// series of length n.
func QuantileIndex(p float64, n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Floor(p * float64(n-1)))
}
