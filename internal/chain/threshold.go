package chain

import (
	"context"
	"log/slog"

	"fleet-monitor/telemetry/internal/domain"
	"fleet-monitor/telemetry/internal/metrics"
)

const TemperatureThreshold = 35.0

// ThresholdStage alerts when the most recent temperature exceeds
// TemperatureThreshold.
type ThresholdStage struct {
	link
	alerts AlertSink
	logger *slog.Logger
}

func NewThresholdStage(alerts AlertSink, logger *slog.Logger, next Stage) *ThresholdStage {
	return &ThresholdStage{link: link{next: next}, alerts: alerts, logger: logger}
}

func (s *ThresholdStage) Handle(ctx context.Context, history []domain.Reading) error {
	if len(history) > 0 {
		temps, _ := ExtractSeries(history)
		last := temps[len(temps)-1]

		if last > TemperatureThreshold {
			s.logger.Warn("temperature above threshold",
				"temperature", last,
				"threshold", TemperatureThreshold)
			metrics.ThresholdAlerts.Add(1)

			alert := domain.Alert{
				Type:      domain.AlertTemperatureThreshold,
				Severity:  domain.SeverityCritical,
				Series:    domain.SeriesTemperature,
				Value:     last,
				Limit:     TemperatureThreshold,
				Timestamp: history[len(history)-1].Timestamp,
			}
			if err := s.alerts.Publish(ctx, alert); err != nil {
				metrics.AlertPublishFailures.Add(1)
				s.logger.Error("threshold alert publish failed", "error", err)
			}
		}
	}

	return s.forward(ctx, history)
}
