package pipeline

import (
	"context"
	"errors"

	"fleet-monitor/telemetry/internal/chain"
	"fleet-monitor/telemetry/internal/domain"
)

// Dispatcher hands every alert raised by the chains to each registered
// sink. It is the single AlertSink the logistic servers are built with.
type Dispatcher struct {
	sinks []chain.AlertSink
}

func NewDispatcher(sinks ...chain.AlertSink) *Dispatcher {
	return &Dispatcher{sinks: sinks}
}

// Add registers a sink. Not safe once alerts are flowing.
func (d *Dispatcher) Add(sink chain.AlertSink) {
	d.sinks = append(d.sinks, sink)
}

func (d *Dispatcher) Publish(ctx context.Context, alert domain.Alert) error {
	var errs []error
	for _, s := range d.sinks {
		if err := s.Publish(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
