package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"fleet-monitor/telemetry/internal/config"
	"fleet-monitor/telemetry/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config: %v", err)
	}

	ctx := context.Background()

	fmt.Println("Connecting to TimescaleDB...")
	conn, err := pgx.Connect(ctx, store.ConnString(cfg))
	if err != nil {
		log.Fatalf("Connection failed: %v\n\nMake sure TimescaleDB is running:\n  docker-compose up -d timescaledb", err)
	}
	defer conn.Close(ctx)
	fmt.Println("✓ Connected")

	createExtension(ctx, conn)
	createReadingsTable(ctx, conn)
	createAlertsTable(ctx, conn)
	createIndexes(ctx, conn)
	verify(ctx, conn)

	fmt.Println("\n✅ Database initialised")
	fmt.Println("   Run next: go run ./scripts/seed_redis")
}

func createExtension(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Extensions ──────────────────────────────────")
	execOrFatal(ctx, conn,
		"CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE;",
		"timescaledb extension",
	)
}

// Column names must match store.readingColumns.
func createReadingsTable(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── vehicle_readings table ──────────────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS vehicle_readings (
			timestamp            TIMESTAMPTZ      NOT NULL,
			vehicle_id           TEXT             NOT NULL,
			temperature_celsius  DOUBLE PRECISION NOT NULL,
			humidity_pct         DOUBLE PRECISION NOT NULL,
			longitude            DOUBLE PRECISION NOT NULL,
			latitude             DOUBLE PRECISION NOT NULL
		);
	`, "vehicle_readings table created")

	// One reading every few seconds per vehicle; daily chunks stay small.
	execOrFatal(ctx, conn, `
		SELECT create_hypertable(
			'vehicle_readings',
			'timestamp',
			chunk_time_interval => INTERVAL '1 day',
			if_not_exists => TRUE
		);
	`, "vehicle_readings converted to hypertable")
}

func createAlertsTable(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── vehicle_alerts table ────────────────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS vehicle_alerts (
			id               BIGSERIAL        PRIMARY KEY,
			vehicle_id       TEXT             NOT NULL,

			-- domain.AlertType and domain.AlertSeverity values
			alert_type       TEXT             NOT NULL,
			severity         TEXT             NOT NULL,
			series           TEXT             NOT NULL,

			-- observed temperature or variation, and the bound it crossed
			triggered_value  DOUBLE PRECISION NOT NULL,
			limit_value      DOUBLE PRECISION NOT NULL,

			reading_at       TIMESTAMPTZ      NOT NULL,
			created_at       TIMESTAMPTZ      NOT NULL DEFAULT NOW(),

			CONSTRAINT chk_alert_type CHECK (
				alert_type IN ('TEMPERATURE_THRESHOLD', 'TEMPERATURE_VARIATION', 'HUMIDITY_VARIATION')
			),
			CONSTRAINT chk_severity CHECK (
				severity IN ('INFO', 'WARNING', 'CRITICAL')
			)
		);
	`, "vehicle_alerts table created")
}

func createIndexes(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Indexes ─────────────────────────────────────")

	indexes := []struct {
		name string
		sql  string
		why  string
	}{
		{
			name: "idx_readings_vehicle_time",
			sql: `CREATE INDEX IF NOT EXISTS idx_readings_vehicle_time
				  ON vehicle_readings (vehicle_id, timestamp DESC);`,
			why: "query: recent readings for one vehicle",
		},
		{
			name: "idx_alerts_vehicle",
			sql: `CREATE INDEX IF NOT EXISTS idx_alerts_vehicle
				  ON vehicle_alerts (vehicle_id, created_at DESC);`,
			why: "query: alerts for one vehicle",
		},
		{
			name: "idx_alerts_type",
			sql: `CREATE INDEX IF NOT EXISTS idx_alerts_type
				  ON vehicle_alerts (alert_type, reading_at DESC);`,
			why: "query: alerts of one kind across vehicles",
		},
	}

	for _, idx := range indexes {
		execOrFatal(ctx, conn, idx.sql, fmt.Sprintf("%-30s ← %s", idx.name, idx.why))
	}
}

func verify(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Verification ────────────────────────────────")

	for _, table := range []string{"vehicle_readings", "vehicle_alerts"} {
		var exists bool
		err := conn.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_name = $1
			)
		`, table).Scan(&exists)
		if err != nil || !exists {
			log.Fatalf("Table %s was not created: %v", table, err)
		}
		fmt.Printf("  ✓ table: %s\n", table)
	}

	var hypertable string
	err := conn.QueryRow(ctx, `
		SELECT hypertable_name
		FROM timescaledb_information.hypertables
		WHERE hypertable_name = 'vehicle_readings'
	`).Scan(&hypertable)
	if err != nil {
		log.Fatalf("vehicle_readings is not a hypertable: %v", err)
	}
	fmt.Printf("  ✓ hypertable: %s\n", hypertable)
}

func execOrFatal(ctx context.Context, conn *pgx.Conn, sql, label string) {
	if _, err := conn.Exec(ctx, sql); err != nil {
		log.Fatalf("FAILED: %s\nError: %v\nSQL: %s", label, err, sql)
	}
	fmt.Printf("  ✓ %s\n", label)
}
