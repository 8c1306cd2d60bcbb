package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleet-monitor/telemetry/internal/config"
	"fleet-monitor/telemetry/internal/domain"
)

type TimescaleStore struct {
	pool *pgxpool.Pool
}

func ConnString(cfg *config.Config) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?pool_max_conns=%d",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBMaxConns,
	)
}

func NewTimescaleStore(ctx context.Context, connStr string) (*TimescaleStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &TimescaleStore{pool: pool}, nil
}

func (s *TimescaleStore) Close() {
	s.pool.Close()
}

func (s *TimescaleStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var readingColumns = []string{
	"timestamp",
	"vehicle_id",
	"temperature_celsius",
	"humidity_pct",
	"longitude",
	"latitude",
}

func (s *TimescaleStore) BatchInsertReadings(ctx context.Context, vehicleID string, readings []domain.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(readings))
	for i, r := range readings {
		rows[i] = []interface{}{
			r.Time(),
			vehicleID,
			r.Temperature,
			r.Humidity,
			r.Longitude,
			r.Latitude,
		}
	}

	_, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"vehicle_readings"},
		readingColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("CopyFrom failed for batch of %d: %w", len(readings), err)
	}

	return nil
}

func (s *TimescaleStore) InsertAlert(ctx context.Context, vehicleID string, alert domain.Alert) error {
	query := `
		INSERT INTO vehicle_alerts
			(vehicle_id, alert_type, severity, series, triggered_value, limit_value, reading_at, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, to_timestamp($7), NOW())
		ON CONFLICT DO NOTHING
	`
	_, err := s.pool.Exec(
		ctx,
		query,
		vehicleID,
		string(alert.Type),
		string(alert.Severity),
		alert.Series,
		alert.Value,
		alert.Limit,
		alert.Timestamp,
	)
	return err
}

// RecentReadings returns up to limit readings of a vehicle, oldest first.
func (s *TimescaleStore) RecentReadings(ctx context.Context, vehicleID string, limit int) ([]domain.Reading, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT extract(epoch FROM timestamp)::bigint, temperature_celsius, longitude, latitude, humidity_pct
		FROM (
			SELECT * FROM vehicle_readings
			WHERE vehicle_id = $1
			ORDER BY timestamp DESC
			LIMIT $2
		) recent
		ORDER BY timestamp ASC
	`, vehicleID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent readings: %w", err)
	}

	readings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Reading, error) {
		var r domain.Reading
		err := row.Scan(&r.Timestamp, &r.Temperature, &r.Longitude, &r.Latitude, &r.Humidity)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan recent readings: %w", err)
	}
	return readings, nil
}
