// Package vehicle implements the reading fan-out: a Vehicle pulls one reading
// per Emit from its source and pushes it to every registered subscriber.
package vehicle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"fleet-monitor/telemetry/internal/domain"
	"fleet-monitor/telemetry/internal/metrics"
)

var ErrInvalidSubscriber = errors.New("invalid subscriber")

// Subscriber is anything that wants every new reading.
type Subscriber interface {
	Update(ctx context.Context, r domain.Reading) error
}

// Source produces one reading per call.
type Source interface {
	Next() domain.Reading
}

type Vehicle struct {
	id          string
	source      Source
	subscribers []Subscriber
	logger      *slog.Logger
}

func New(id string, source Source, logger *slog.Logger) *Vehicle {
	return &Vehicle{id: id, source: source, logger: logger}
}

func (v *Vehicle) ID() string {
	return v.id
}

// Register adds candidate to the notification list. Values that do not
// implement Subscriber are rejected, and so are nil values, typed nil
// pointers included.
func (v *Vehicle) Register(candidate interface{}) error {
	sub, ok := candidate.(Subscriber)
	if !ok {
		return fmt.Errorf("%w: %T does not implement Update", ErrInvalidSubscriber, candidate)
	}
	if isNil(candidate) {
		return fmt.Errorf("%w: nil %T", ErrInvalidSubscriber, candidate)
	}
	v.subscribers = append(v.subscribers, sub)
	v.logger.Debug("subscriber registered", "vehicle_id", v.id, "type", fmt.Sprintf("%T", sub))
	return nil
}

func isNil(candidate interface{}) bool {
	rv := reflect.ValueOf(candidate)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func (v *Vehicle) Subscribers() int {
	return len(v.subscribers)
}

// Emit takes a fresh reading and delivers it to subscribers in registration
// order. The first failing subscriber stops the fan-out for this reading.
func (v *Vehicle) Emit(ctx context.Context) error {
	r := v.source.Next()
	metrics.ReadingsEmitted.Add(1)

	for i, sub := range v.subscribers {
		if err := sub.Update(ctx, r); err != nil {
			return fmt.Errorf("subscriber %d (%T) update failed: %w", i, sub, err)
		}
	}
	return nil
}
