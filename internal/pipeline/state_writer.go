package pipeline

import (
	"context"
	"log/slog"
	"time"

	"fleet-monitor/telemetry/internal/domain"
	"fleet-monitor/telemetry/internal/metrics"
)

type StateStore interface {
	UpdateState(ctx context.Context, vehicleID string, r domain.Reading) error
}

// StateWriter is a vehicle subscriber keeping the live vehicle state in
// Redis. Failures are logged and counted; they never abort the fan-out.
type StateWriter struct {
	redis     StateStore
	vehicleID string
	timeout   time.Duration
	logger    *slog.Logger
}

func NewStateWriter(redis StateStore, vehicleID string, logger *slog.Logger) *StateWriter {
	return &StateWriter{
		redis:     redis,
		vehicleID: vehicleID,
		timeout:   2 * time.Second,
		logger:    logger,
	}
}

func (w *StateWriter) Update(ctx context.Context, r domain.Reading) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.redis.UpdateState(ctx, w.vehicleID, r); err != nil {
		metrics.StateWriteFailures.Add(1)
		w.logger.Warn("redis state update failed", "vehicle_id", w.vehicleID, "error", err)
	}
	return nil
}
