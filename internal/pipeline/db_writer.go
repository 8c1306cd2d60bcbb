package pipeline

import (
	"context"
	"log/slog"
	"time"

	"fleet-monitor/telemetry/internal/domain"
	"fleet-monitor/telemetry/internal/metrics"
)

type ReadingStore interface {
	BatchInsertReadings(ctx context.Context, vehicleID string, readings []domain.Reading) error
}

// DBWriter is a vehicle subscriber that persists readings in batches. Update
// only enqueues; Run does the writing.
type DBWriter struct {
	ch         chan domain.Reading
	db         ReadingStore
	vehicleID  string
	batchSize  int
	flushEvery time.Duration
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewDBWriter(
	db ReadingStore,
	vehicleID string,
	channelSize int,
	batchSize int,
	flushEvery time.Duration,
	logger *slog.Logger,
) *DBWriter {
	return &DBWriter{
		ch:         make(chan domain.Reading, channelSize),
		db:         db,
		vehicleID:  vehicleID,
		batchSize:  batchSize,
		flushEvery: flushEvery,
		retryDelay: 500 * time.Millisecond,
		logger:     logger,
	}
}

// Update queues r for the next flush. A full queue drops the reading rather
// than stall the tick.
func (w *DBWriter) Update(_ context.Context, r domain.Reading) error {
	select {
	case w.ch <- r:
	default:
		metrics.DBChannelDrops.Add(1)
	}
	return nil
}

func (w *DBWriter) Run(ctx context.Context) {
	batch := make([]domain.Reading, 0, w.batchSize)
	ticker := time.NewTicker(w.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case r := <-w.ch:
			batch = append(batch, r)
			if len(batch) >= w.batchSize {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			batch = w.drain(batch)
			if len(batch) > 0 {
				// ctx is already cancelled; give the last flush its own deadline
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				w.flush(flushCtx, batch)
				cancel()
			}
			return
		}
	}
}

func (w *DBWriter) drain(batch []domain.Reading) []domain.Reading {
	for {
		select {
		case r := <-w.ch:
			batch = append(batch, r)
		default:
			return batch
		}
	}
}

func (w *DBWriter) flush(ctx context.Context, batch []domain.Reading) {
	err := w.db.BatchInsertReadings(ctx, w.vehicleID, batch)
	if err != nil {
		w.logger.Warn("db write failed, retrying", "batch", len(batch), "error", err)
		time.Sleep(w.retryDelay)
		err = w.db.BatchInsertReadings(ctx, w.vehicleID, batch)
		if err != nil {
			w.logger.Error("db write permanently failed", "batch", len(batch), "error", err)
			metrics.DBWriteFailures.Add(int64(len(batch)))
			return
		}
	}
	metrics.DBWriteSuccess.Add(int64(len(batch)))
}
