package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	// Simulation
	VehicleID       string `yaml:"vehicle_id"`
	TickIntervalMS  int    `yaml:"tick_interval_ms"`
	Duration        string `yaml:"duration"` // whole seconds; empty runs until stopped
	LogisticServers int    `yaml:"logistic_servers"`
	RandomSeed      int64  `yaml:"random_seed"` // 0 seeds from the clock

	// Logging
	LogLevel     string `yaml:"log_level"`
	LogFile      string `yaml:"log_file"`
	LogMaxSizeMB int    `yaml:"log_max_size_mb"`

	// HTTP status API, disabled when empty
	HTTPPort string `yaml:"http_port"`

	// TimescaleDB
	DBEnabled  bool   `yaml:"db_enabled"`
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBMaxConns int32  `yaml:"db_max_conns"`

	// Redis
	RedisEnabled  bool   `yaml:"redis_enabled"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// Pipeline channels
	DBChannelSize    int `yaml:"db_channel_size"`
	AlertChannelSize int `yaml:"alert_channel_size"`

	// Batch writer tuning
	DBBatchSize       int `yaml:"db_batch_size"`
	DBFlushIntervalMS int `yaml:"db_flush_interval_ms"`

	// Auth
	AuthCacheTTLSeconds int      `yaml:"auth_cache_ttl_seconds"`
	ValidAPIKeys        []string `yaml:"valid_api_keys"`

	// Rate limiting of the status API
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		VehicleID:           "truck-01",
		TickIntervalMS:      5000,
		LogisticServers:     1,
		LogLevel:            "info",
		LogMaxSizeMB:        50,
		DBHost:              "localhost",
		DBPort:              "5432",
		DBUser:              "fleet_user",
		DBPassword:          "fleet_password",
		DBName:              "fleet_monitor",
		DBMaxConns:          5,
		RedisAddr:           "localhost:6379",
		DBChannelSize:       1000,
		AlertChannelSize:    1000,
		DBBatchSize:         50,
		DBFlushIntervalMS:   1000,
		AuthCacheTTLSeconds: 300,
		RateLimitRPS:        10,
		RateLimitBurst:      20,
	}
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	cfg.VehicleID = getEnv("VEHICLE_ID", cfg.VehicleID)
	cfg.TickIntervalMS = getEnvInt("TICK_INTERVAL_MS", cfg.TickIntervalMS)
	cfg.Duration = getEnv("MONITOR_DURATION", cfg.Duration)
	cfg.LogisticServers = getEnvInt("LOGISTIC_SERVERS", cfg.LogisticServers)
	cfg.RandomSeed = int64(getEnvInt("RANDOM_SEED", int(cfg.RandomSeed)))

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.LogMaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", cfg.LogMaxSizeMB)

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)

	cfg.DBEnabled = getEnvBool("DB_ENABLED", cfg.DBEnabled)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.DBMaxConns = int32(getEnvInt("DB_MAX_CONNS", int(cfg.DBMaxConns)))

	cfg.RedisEnabled = getEnvBool("REDIS_ENABLED", cfg.RedisEnabled)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)

	cfg.DBChannelSize = getEnvInt("DB_CHANNEL_SIZE", cfg.DBChannelSize)
	cfg.AlertChannelSize = getEnvInt("ALERT_CHANNEL_SIZE", cfg.AlertChannelSize)
	cfg.DBBatchSize = getEnvInt("DB_BATCH_SIZE", cfg.DBBatchSize)
	cfg.DBFlushIntervalMS = getEnvInt("DB_FLUSH_INTERVAL_MS", cfg.DBFlushIntervalMS)

	cfg.AuthCacheTTLSeconds = getEnvInt("AUTH_CACHE_TTL_SECONDS", cfg.AuthCacheTTLSeconds)
	if keys := os.Getenv("VALID_API_KEYS"); keys != "" {
		cfg.ValidAPIKeys = strings.Split(keys, ",")
	}

	cfg.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
}

// Validate checks values that would otherwise fail deep inside the monitor.
// The duration itself is parsed by the monitor package.
func (c *Config) Validate() error {
	if c.VehicleID == "" {
		return fmt.Errorf("vehicle id must not be empty")
	}
	if c.TickIntervalMS <= 0 {
		return fmt.Errorf("tick interval %dms must be positive", c.TickIntervalMS)
	}
	if c.LogisticServers < 1 {
		return fmt.Errorf("at least one logistic server is required, got %d", c.LogisticServers)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	if c.DBEnabled && (c.DBBatchSize <= 0 || c.DBFlushIntervalMS <= 0) {
		return fmt.Errorf("db batch size and flush interval must be positive")
	}
	if c.DBChannelSize < 0 || c.AlertChannelSize < 0 {
		return fmt.Errorf("channel sizes must not be negative")
	}
	return nil
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

func (c *Config) DBFlushInterval() time.Duration {
	return time.Duration(c.DBFlushIntervalMS) * time.Millisecond
}

func (c *Config) AuthCacheTTL() time.Duration {
	return time.Duration(c.AuthCacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
