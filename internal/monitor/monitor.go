// Package monitor drives the simulation: it owns the vehicle, the logistic
// servers analysing its readings, and the tick loop that emits them.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"fleet-monitor/telemetry/internal/vehicle"
)

var ErrInvalidDuration = errors.New("invalid monitoring duration")

type Monitor struct {
	vehicle  *vehicle.Vehicle
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func New(v *vehicle.Vehicle, interval time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{
		vehicle:  v,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs the tick loop. With a nil duration it runs until ctx is done;
// otherwise it stops once durationSeconds have elapsed. Each tick emits one
// reading and then sleeps for the tick interval. The first error from a
// tick is logged and ends the loop.
func (m *Monitor) Start(ctx context.Context, durationSeconds *int) error {
	var deadline time.Time
	if durationSeconds != nil {
		if *durationSeconds < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidDuration, *durationSeconds)
		}
		deadline = m.now().Add(time.Duration(*durationSeconds) * time.Second)
	}

	m.logger.Info("monitoring started",
		"vehicle_id", m.vehicle.ID(),
		"subscribers", m.vehicle.Subscribers(),
		"interval", m.interval,
		"duration", formatDuration(durationSeconds))

	ticks := 0
	for durationSeconds == nil || m.now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			break
		}

		if err := m.vehicle.Emit(ctx); err != nil {
			m.logger.Error("monitoring aborted", "tick", ticks, "error", err)
			return err
		}
		ticks++

		select {
		case <-ctx.Done():
		case <-time.After(m.interval):
		}
	}

	m.logger.Info("monitoring stopped", "ticks", ticks)
	return nil
}

// ParseDuration reads a duration in whole seconds. An empty string means
// "run until stopped" and yields nil.
func ParseDuration(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a whole number of seconds", ErrInvalidDuration, raw)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDuration, n)
	}
	return &n, nil
}

func formatDuration(d *int) string {
	if d == nil {
		return "unbounded"
	}
	return (time.Duration(*d) * time.Second).String()
}
