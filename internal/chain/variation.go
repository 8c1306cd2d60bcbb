package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"fleet-monitor/telemetry/internal/domain"
	"fleet-monitor/telemetry/internal/metrics"
)

const (
	// VariationWindow is the number of most recent readings compared.
	VariationWindow = 6
	VariationDelta  = 2.0
)

// VariationStage is the terminal stage. It checks the temperature and
// humidity swing over the last VariationWindow readings concurrently and
// returns once both checks are done.
type VariationStage struct {
	link
	alerts AlertSink
	logger *slog.Logger
}

func NewVariationStage(alerts AlertSink, logger *slog.Logger) *VariationStage {
	return &VariationStage{alerts: alerts, logger: logger}
}

func (s *VariationStage) Handle(ctx context.Context, history []domain.Reading) error {
	recent := Tail(history, VariationWindow)
	temps, hums := ExtractSeries(recent)

	var ts int64
	if len(recent) > 0 {
		ts = recent[len(recent)-1].Timestamp
	}

	if err := s.runChecks(ctx, temps, hums, ts); err != nil {
		s.logger.Error("variation alert publish failed", "error", err)
	}

	return s.forward(ctx, history)
}

// runChecks forks both checks and joins every failure. A plain Group never
// cancels, so a failing check leaves the other running.
func (s *VariationStage) runChecks(ctx context.Context, temps, hums []float64, ts int64) error {
	var (
		g    errgroup.Group
		errs [2]error
	)
	g.Go(func() error {
		errs[0] = s.check(ctx, domain.AlertTemperatureVariation, domain.SeriesTemperature, temps, ts)
		return nil
	})
	g.Go(func() error {
		errs[1] = s.check(ctx, domain.AlertHumidityVariation, domain.SeriesHumidity, hums, ts)
		return nil
	})
	_ = g.Wait()
	return errors.Join(errs[:]...)
}

func (s *VariationStage) check(ctx context.Context, kind domain.AlertType, series string, data []float64, ts int64) error {
	if len(data) < 2 {
		return nil
	}

	delta := math.Abs(data[len(data)-1] - data[0])
	if delta <= VariationDelta {
		return nil
	}

	s.logger.Warn("abrupt variation",
		"series", series,
		"delta", delta,
		"limit", VariationDelta,
		"readings", len(data))
	metrics.VariationAlerts.Add(1)

	err := s.alerts.Publish(ctx, domain.Alert{
		Type:      kind,
		Severity:  domain.SeverityWarning,
		Series:    series,
		Value:     delta,
		Limit:     VariationDelta,
		Timestamp: ts,
	})
	if err != nil {
		metrics.AlertPublishFailures.Add(1)
		return fmt.Errorf("%s: %w", series, err)
	}
	return nil
}
