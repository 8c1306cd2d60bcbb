package monitor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"fleet-monitor/telemetry/internal/chain"
	"fleet-monitor/telemetry/internal/domain"
	"fleet-monitor/telemetry/internal/source"
	"fleet-monitor/telemetry/internal/strategy"
)

// HistoryWindow is how many of the latest readings enter the chain on each
// update: one minute of data at the default 5s tick.
// TODO: derive from TickInterval once windows are expressed in time rather than count.
const HistoryWindow = 12

// StrategyPicker chooses the statistics strategy for one cycle.
type StrategyPicker interface {
	Pick() strategy.Strategy
}

// LogisticServer is an analysis subscriber. It owns its reading history and
// its own chain, and analyses the most recent window on every update.
//
// History is only ever appended by Update on the monitoring loop; mu exists
// so History snapshots can be taken from other goroutines.
type LogisticServer struct {
	id      string
	mu      sync.RWMutex
	history []domain.Reading
	head    *chain.StatisticsStage
	picker  StrategyPicker
	logger  *slog.Logger
}

func NewLogisticServer(alerts chain.AlertSink, picker StrategyPicker, logger *slog.Logger) *LogisticServer {
	id := uuid.NewString()
	logger = logger.With("server_id", id)
	return &LogisticServer{
		id:     id,
		head:   chain.NewChain(alerts, logger),
		picker: picker,
		logger: logger,
	}
}

func (s *LogisticServer) ID() string {
	return s.id
}

// Update records r and runs the chain over the latest HistoryWindow readings.
func (s *LogisticServer) Update(ctx context.Context, r domain.Reading) error {
	s.mu.Lock()
	s.history = append(s.history, r)
	history := s.history
	s.mu.Unlock()

	s.logger.Info("reading received",
		"time", r.Time().Format("2006-01-02 15:04:05"),
		"temperature", r.Temperature,
		"humidity", r.Humidity,
		"position", source.FormatCoordinates(r.Longitude, r.Latitude))

	return s.analyze(ctx, history)
}

func (s *LogisticServer) analyze(ctx context.Context, history []domain.Reading) error {
	window := chain.Tail(history, HistoryWindow)
	s.head.SetStrategy(s.picker.Pick())
	return s.head.Handle(ctx, window)
}

// History returns a copy of every reading received so far.
func (s *LogisticServer) History() []domain.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Reading, len(s.history))
	copy(out, s.history)
	return out
}

// Statistics exposes the chain head, mainly so callers can inspect the
// strategy and result of the last cycle.
func (s *LogisticServer) Statistics() *chain.StatisticsStage {
	return s.head
}
