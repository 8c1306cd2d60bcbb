package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"fleet-monitor/telemetry/internal/auth"
	"fleet-monitor/telemetry/internal/config"
	"fleet-monitor/telemetry/internal/logging"
	"fleet-monitor/telemetry/internal/monitor"
	"fleet-monitor/telemetry/internal/pipeline"
	"fleet-monitor/telemetry/internal/source"
	"fleet-monitor/telemetry/internal/store"
	"fleet-monitor/telemetry/internal/strategy"
	transport "fleet-monitor/telemetry/internal/transport/http"
	"fleet-monitor/telemetry/internal/vehicle"
)

const streamBuffer = 64

type runFlags struct {
	duration    string
	interval    time.Duration
	servers     int
	durationSet bool
	intervalSet bool
	serversSet  bool
}

func (f runFlags) apply(cfg *config.Config) error {
	if f.durationSet {
		cfg.Duration = f.duration
	}
	if f.intervalSet {
		cfg.TickIntervalMS = int(f.interval / time.Millisecond)
	}
	if f.serversSet {
		cfg.LogisticServers = f.servers
	}
	return cfg.Validate()
}

func run(parent context.Context, flags runFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := flags.apply(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	duration, err := monitor.ParseDuration(cfg.Duration)
	if err != nil {
		return err
	}

	logger, closeLog := logging.New(logging.Options{
		Level:     cfg.LogLevel,
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
	})
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db    *store.TimescaleStore
		redis *store.RedisStore
	)
	if cfg.DBEnabled {
		db, err = store.NewTimescaleStore(ctx, store.ConnString(cfg))
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("connected to timescaledb", "host", cfg.DBHost, "db", cfg.DBName)
	}
	if cfg.RedisEnabled {
		redis, err = store.NewRedisStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer redis.Close()
		logger.Info("connected to redis", "addr", cfg.RedisAddr)
	}

	// Background writers outlive the monitoring loop and drain before the stores close.
	workCtx, cancelWork := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	defer func() {
		cancelWork()
		workers.Wait()
	}()

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	v := vehicle.New(cfg.VehicleID, source.NewGenerator(rng), logger)
	dispatcher := pipeline.NewDispatcher()

	if db != nil || redis != nil {
		// Typed nils must not reach the writers as non-nil interfaces.
		var (
			recorder pipeline.AlertRecorder
			broker   pipeline.AlertBroker
		)
		if db != nil {
			recorder = db
		}
		if redis != nil {
			broker = redis
		}
		alerts := pipeline.NewAlertWriter(recorder, broker, cfg.VehicleID, cfg.AlertChannelSize, logger)
		dispatcher.Add(alerts)
		spawn(&workers, func() { alerts.Run(workCtx) })
	}
	if db != nil {
		w := pipeline.NewDBWriter(db, cfg.VehicleID, cfg.DBChannelSize, cfg.DBBatchSize, cfg.DBFlushInterval(), logger)
		if err := v.Register(w); err != nil {
			return err
		}
		spawn(&workers, func() { w.Run(workCtx) })
	}
	if redis != nil {
		if err := v.Register(pipeline.NewStateWriter(redis, cfg.VehicleID, logger)); err != nil {
			return err
		}
	}

	picker := strategy.NewPicker(rng)
	servers := make([]transport.ServerView, 0, cfg.LogisticServers)
	for i := 0; i < cfg.LogisticServers; i++ {
		s := monitor.NewLogisticServer(dispatcher, picker, logger)
		if err := v.Register(s); err != nil {
			return err
		}
		servers = append(servers, s)
	}

	if cfg.HTTPPort != "" {
		hub := transport.NewStreamHub(streamBuffer, logger)
		if err := v.Register(hub); err != nil {
			return err
		}
		dispatcher.Add(hub)

		deps := transport.Deps{
			VehicleID:      cfg.VehicleID,
			Servers:        servers,
			Stream:         hub,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
			Logger:         logger,
		}
		var lookup auth.KeyLookup
		if redis != nil {
			deps.State = redis
			lookup = redis
		}
		if db != nil {
			deps.Readings = db
		}
		deps.Auth = auth.NewAuthenticator(cfg.ValidAPIKeys, cfg.AuthCacheTTL(), lookup)

		srv := &http.Server{
			Addr:              ":" + cfg.HTTPPort,
			Handler:           transport.NewRouter(deps),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("status api listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status api failed", "error", err)
			}
		}()
		defer func() {
			hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("status api shutdown failed", "error", err)
			}
		}()
	}

	err = monitor.New(v, cfg.TickInterval(), logger).Start(ctx, duration)
	logger.Info("shutting down")
	return err
}

func spawn(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}
