package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fleet-monitor/telemetry/internal/config"
	"fleet-monitor/telemetry/internal/domain"
)

const (
	stateTTL      = 30 * time.Second
	alertDedupTTL = 5 * time.Minute
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return NewRedisStoreWithClient(ctx, client)
}

func NewRedisStoreWithClient(ctx context.Context, client *redis.Client) (*RedisStore, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Client() *redis.Client {
	return r.client
}

func stateKey(vehicleID string) string { return fmt.Sprintf("vehicle:%s:state", vehicleID) }
func readingChannel(vehicleID string) string { return fmt.Sprintf("vehicle:%s:readings", vehicleID) }
func alertChannel(vehicleID string) string { return fmt.Sprintf("vehicle:%s:alerts", vehicleID) }

const geoKey = "fleet:geo"

// UpdateState stores the latest reading as the vehicle's live state, moves
// it on the fleet geo index and publishes the reading.
func (r *RedisStore) UpdateState(ctx context.Context, vehicleID string, reading domain.Reading) error {
	stateData := map[string]interface{}{
		"vehicle_id":  vehicleID,
		"lat":         reading.Latitude,
		"lng":         reading.Longitude,
		"temperature": reading.Temperature,
		"humidity":    reading.Humidity,
		"timestamp":   reading.Timestamp,
	}

	pubPayload, err := json.Marshal(stateData)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	key := stateKey(vehicleID)
	pipe := r.client.Pipeline()

	pipe.HSet(ctx, key, stateData)
	pipe.Expire(ctx, key, stateTTL)
	pipe.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      vehicleID,
		Longitude: reading.Longitude,
		Latitude:  reading.Latitude,
	})
	pipe.Publish(ctx, readingChannel(vehicleID), pubPayload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// GetState returns the stored live state of a vehicle, empty if expired.
func (r *RedisStore) GetState(ctx context.Context, vehicleID string) (map[string]string, error) {
	state, err := r.client.HGetAll(ctx, stateKey(vehicleID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get state failed: %w", err)
	}
	return state, nil
}

func apiKeyKey(apiKey string) string { return fmt.Sprintf("monitor:auth:%s", apiKey) }

// SetAPIKey stores a dynamic API key without expiry.
func (r *RedisStore) SetAPIKey(ctx context.Context, apiKey, owner string) error {
	return r.client.Set(ctx, apiKeyKey(apiKey), owner, 0).Err()
}

func (r *RedisStore) GetAPIKey(ctx context.Context, apiKey string) (string, error) {
	val, err := r.client.Get(ctx, apiKeyKey(apiKey)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get api key failed: %w", err)
	}
	return val, nil
}

func dedupKey(vehicleID string, alertType domain.AlertType) string {
	return fmt.Sprintf("alert:%s:%s", vehicleID, string(alertType))
}

func (r *RedisStore) CheckAlertDedup(ctx context.Context, vehicleID string, alertType domain.AlertType) (bool, error) {
	count, err := r.client.Exists(ctx, dedupKey(vehicleID, alertType)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return count > 0, nil
}

func (r *RedisStore) SetAlertDedup(ctx context.Context, vehicleID string, alertType domain.AlertType) error {
	return r.client.Set(ctx, dedupKey(vehicleID, alertType), "1", alertDedupTTL).Err()
}

func (r *RedisStore) PublishAlert(ctx context.Context, vehicleID string, payload []byte) error {
	return r.client.Publish(ctx, alertChannel(vehicleID), payload).Err()
}
