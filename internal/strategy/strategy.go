// Package strategy holds the interchangeable statistics algorithms run by the
// first stage of the analysis chain. Every strategy applies the same
// computation to the temperature and humidity series and labels the results.
package strategy

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"fleet-monitor/telemetry/internal/domain"
)

var ErrEmptySeries = errors.New("empty series")

type Kind string

const (
	KindMeanDeviation Kind = "mean_deviation"
	KindMaxMin        Kind = "max_min"
	KindQuantiles     Kind = "quantiles"
)

// Strategy computes summary statistics over two parallel series.
// Implementations are stateless.
type Strategy interface {
	Name() Kind
	Calculate(temperatures, humidities []float64) (Result, error)
}

// Summary holds the figures one strategy produced for one series. Only the
// fields belonging to Kind are populated.
type Summary struct {
	Series string
	Kind   Kind

	Mean   float64
	StdDev float64

	Max float64
	Min float64

	Q1 float64
	Q2 float64
	Q3 float64
}

func (s Summary) String() string {
	switch s.Kind {
	case KindMeanDeviation:
		return fmt.Sprintf("%s: mean=%v stddev=%v", s.Series, s.Mean, s.StdDev)
	case KindMaxMin:
		return fmt.Sprintf("%s: max=%v min=%v", s.Series, s.Max, s.Min)
	case KindQuantiles:
		return fmt.Sprintf("%s: q1=%v q2=%v q3=%v", s.Series, s.Q1, s.Q2, s.Q3)
	default:
		return s.Series
	}
}

// Result is one strategy run: temperature summary first, then humidity.
type Result struct {
	Strategy Kind
	Series   []Summary
}

func (r Result) Temperature() Summary { return r.lookup(domain.SeriesTemperature) }
func (r Result) Humidity() Summary    { return r.lookup(domain.SeriesHumidity) }

func (r Result) lookup(series string) Summary {
	for _, s := range r.Series {
		if s.Series == series {
			return s
		}
	}
	return Summary{}
}

func (r Result) String() string {
	parts := make([]string, len(r.Series))
	for i, s := range r.Series {
		parts[i] = s.String()
	}
	return strings.Join(parts, "; ")
}

// summarize runs fn over both series in label order and collects the output.
func summarize(kind Kind, temperatures, humidities []float64, fn func(series string, data []float64) Summary) (Result, error) {
	res := Result{Strategy: kind, Series: make([]Summary, 0, 2)}
	for _, in := range []struct {
		label string
		data  []float64
	}{
		{domain.SeriesTemperature, temperatures},
		{domain.SeriesHumidity, humidities},
	} {
		if len(in.data) == 0 {
			return Result{}, fmt.Errorf("%s %s: %w", kind, in.label, ErrEmptySeries)
		}
		s := fn(in.label, in.data)
		s.Series = in.label
		s.Kind = kind
		res.Series = append(res.Series, s)
	}
	return res, nil
}

// All returns one instance of every strategy, in a fixed order.
func All() []Strategy {
	return []Strategy{MeanDeviation{}, MaxMin{}, Quantiles{}}
}

// Picker selects a strategy uniformly at random. It is not safe for
// concurrent use because *rand.Rand is not.
type Picker struct {
	rng        *rand.Rand
	strategies []Strategy
}

func NewPicker(rng *rand.Rand) *Picker {
	return &Picker{rng: rng, strategies: All()}
}

func (p *Picker) Pick() Strategy {
	return p.strategies[p.rng.Intn(len(p.strategies))]
}
