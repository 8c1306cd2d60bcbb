package chain

import (
	"context"
	"errors"
	"log/slog"

	"fleet-monitor/telemetry/internal/domain"
	"fleet-monitor/telemetry/internal/metrics"
	"fleet-monitor/telemetry/internal/strategy"
)

var ErrNoStrategy = errors.New("no statistics strategy set")

// StatisticsStage is the chain's entry point. It runs the current strategy
// over whatever history it is given; windowing is the caller's job.
type StatisticsStage struct {
	link
	strategy strategy.Strategy
	last     strategy.Result
	logger   *slog.Logger
}

func NewStatisticsStage(logger *slog.Logger, next Stage) *StatisticsStage {
	return &StatisticsStage{link: link{next: next}, logger: logger}
}

// SetStrategy replaces the strategy used by the next Handle call.
func (s *StatisticsStage) SetStrategy(st strategy.Strategy) {
	s.strategy = st
}

func (s *StatisticsStage) Strategy() strategy.Strategy {
	return s.strategy
}

// LastResult returns the output of the most recent successful run.
func (s *StatisticsStage) LastResult() strategy.Result {
	return s.last
}

func (s *StatisticsStage) Handle(ctx context.Context, history []domain.Reading) error {
	if s.strategy == nil {
		return ErrNoStrategy
	}

	temps, hums := ExtractSeries(history)
	res, err := s.strategy.Calculate(temps, hums)
	if err != nil {
		return err
	}
	s.last = res
	metrics.StatisticsRuns.Add(1)

	for _, summary := range res.Series {
		s.logger.Info(summary.String(), "strategy", res.Strategy, "readings", len(history))
	}

	return s.forward(ctx, history)
}
