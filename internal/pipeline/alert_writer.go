package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"fleet-monitor/telemetry/internal/domain"
	"fleet-monitor/telemetry/internal/metrics"
)

type AlertRecorder interface {
	InsertAlert(ctx context.Context, vehicleID string, alert domain.Alert) error
}

type AlertBroker interface {
	CheckAlertDedup(ctx context.Context, vehicleID string, alertType domain.AlertType) (bool, error)
	SetAlertDedup(ctx context.Context, vehicleID string, alertType domain.AlertType) error
	PublishAlert(ctx context.Context, vehicleID string, payload []byte) error
}

// AlertWriter persists and publishes alerts off the tick path. Either
// backend may be nil when it is disabled.
type AlertWriter struct {
	ch        chan domain.Alert
	db        AlertRecorder
	redis     AlertBroker
	vehicleID string
	logger    *slog.Logger
}

func NewAlertWriter(db AlertRecorder, redis AlertBroker, vehicleID string, channelSize int, logger *slog.Logger) *AlertWriter {
	return &AlertWriter{
		ch:        make(chan domain.Alert, channelSize),
		db:        db,
		redis:     redis,
		vehicleID: vehicleID,
		logger:    logger,
	}
}

// Publish queues the alert. It never blocks; a full queue drops the alert.
func (w *AlertWriter) Publish(_ context.Context, alert domain.Alert) error {
	select {
	case w.ch <- alert:
	default:
		metrics.AlertChannelDrops.Add(1)
	}
	return nil
}

func (w *AlertWriter) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			// ctx is already cancelled; queued alerts get their own deadline
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.drain(drainCtx)
			cancel()
			return
		}

		select {
		case alert := <-w.ch:
			w.write(ctx, alert)
		case <-ctx.Done():
		}
	}
}

func (w *AlertWriter) drain(ctx context.Context) {
	for {
		select {
		case alert := <-w.ch:
			w.write(ctx, alert)
		default:
			return
		}
	}
}

func (w *AlertWriter) write(ctx context.Context, alert domain.Alert) {
	if w.redis != nil {
		isDuplicate, err := w.redis.CheckAlertDedup(ctx, w.vehicleID, alert.Type)
		if err != nil {
			w.logger.Warn("alert dedup check failed", "type", alert.Type, "error", err)
			return
		}
		if isDuplicate {
			return
		}
	}

	if w.db != nil {
		if err := w.db.InsertAlert(ctx, w.vehicleID, alert); err != nil {
			w.logger.Error("alert insert failed", "type", alert.Type, "error", err)
			return
		}
	}

	if w.redis == nil {
		return
	}

	if err := w.redis.SetAlertDedup(ctx, w.vehicleID, alert.Type); err != nil {
		w.logger.Warn("alert dedup set failed", "type", alert.Type, "error", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"vehicle_id":   w.vehicleID,
		"alert_type":   string(alert.Type),
		"severity":     string(alert.Severity),
		"series":       alert.Series,
		"value":        alert.Value,
		"limit":        alert.Limit,
		"reading_at":   alert.Timestamp,
		"triggered_at": time.Now().Unix(),
	})
	if err := w.redis.PublishAlert(ctx, w.vehicleID, payload); err != nil {
		w.logger.Warn("alert publish failed", "type", alert.Type, "error", err)
	}
}
