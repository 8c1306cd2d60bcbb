// Package chain implements the ordered analysis stages a logistic server runs
// over its reading history: statistics, then the temperature threshold check,
// then the short-window variation check.
//
// Each stage does its own work and then always hands the same history to its
// successor. Stages keep no history of their own. A chain is not safe for
// concurrent Handle calls: the statistics stage's strategy is swapped before
// every invocation and relies on ticks never overlapping.
package chain

import (
	"context"
	"log/slog"

	"fleet-monitor/telemetry/internal/domain"
)

type Stage interface {
	Handle(ctx context.Context, history []domain.Reading) error
}

// AlertSink receives alerts raised by the stages.
type AlertSink interface {
	Publish(ctx context.Context, alert domain.Alert) error
}

// link is embedded by every stage to hold and call the successor.
type link struct {
	next Stage
}

func (l link) forward(ctx context.Context, history []domain.Reading) error {
	if l.next == nil {
		return nil
	}
	return l.next.Handle(ctx, history)
}

// ExtractSeries projects history into parallel temperature and humidity
// series. Both have len(history) elements, in history order.
func ExtractSeries(history []domain.Reading) (temperatures, humidities []float64) {
	temperatures = make([]float64, len(history))
	humidities = make([]float64, len(history))
	for i, r := range history {
		temperatures[i] = r.Temperature
		humidities[i] = r.Humidity
	}
	return temperatures, humidities
}

// Tail returns the last n readings of history without copying.
func Tail(history []domain.Reading, n int) []domain.Reading {
	if n <= 0 {
		return history[:0]
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// NewChain wires statistics -> threshold -> variation and returns the head.
// The tail is built first since each stage needs its successor.
func NewChain(alerts AlertSink, logger *slog.Logger) *StatisticsStage {
	variation := NewVariationStage(alerts, logger)
	threshold := NewThresholdStage(alerts, logger, variation)
	return NewStatisticsStage(logger, threshold)
}
