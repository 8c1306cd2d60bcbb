package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"fleet-monitor/telemetry/internal/config"
	"fleet-monitor/telemetry/internal/store"
)

// Dynamic API keys for the status API, key -> owner. Static keys live in
// VALID_API_KEYS instead.
var apiKeys = map[string]string{
	"ops_dashboard_key": "ops-dashboard",
	"cold_chain_key":    "cold-chain-team",
	"test_key":          "test",
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config: %v", err)
	}

	ctx := context.Background()

	fmt.Println("Connecting to Redis...")
	rs, err := store.NewRedisStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Connection failed: %v\n\nMake sure Redis is running:\n  docker-compose up -d redis", err)
	}
	defer rs.Close()
	fmt.Println("✓ Connected")

	seedAPIKeys(ctx, rs)
	verify(ctx, rs)

	fmt.Println("\n✅ Redis seeded")
	fmt.Println("   Run next: go run ./cmd/monitor run --duration 60")
}

func seedAPIKeys(ctx context.Context, rs *store.RedisStore) {
	fmt.Println("\n── API keys ────────────────────────────────────")
	for key, owner := range apiKeys {
		if err := rs.SetAPIKey(ctx, key, owner); err != nil {
			log.Fatalf("Failed to set key %s: %v", key, err)
		}
		fmt.Printf("  ✓ %-25s → %s\n", key, owner)
	}
}

func verify(ctx context.Context, rs *store.RedisStore) {
	fmt.Println("\n── Verification ────────────────────────────────")

	var missing []string
	for key, owner := range apiKeys {
		got, err := rs.GetAPIKey(ctx, key)
		if err != nil {
			log.Fatalf("Lookup of %s failed: %v", key, err)
		}
		if got != owner {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		log.Fatalf("Keys not readable back: %s", strings.Join(missing, ", "))
	}
	fmt.Printf("  ✓ %d API keys resolvable\n", len(apiKeys))
}
