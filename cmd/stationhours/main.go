package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stationhours/internal/api"
	"stationhours/internal/cache"
	"stationhours/internal/config"
	"stationhours/internal/database"
	"stationhours/internal/events"
	"stationhours/internal/metrics"
	"stationhours/internal/monitor"
	"stationhours/internal/service"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	envErr := godotenv.Load()

	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		logger = logger.Level(lvl)
	}
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.Warn().Err(envErr).Msg("failed to read .env")
	}

	cfg, err := config.Load(os.Getenv("STATIONHOURS_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid timezone")
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()
	logger.Info().Str("path", db.Path()).Msg("database opened")

	var m *metrics.Metrics
	if cfg.Monitoring.PrometheusEnabled {
		m = metrics.Register()
	}

	var rdb *redis.Client
	var configCache *cache.ConfigCache
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		configCache = cache.New(rdb, cfg.CacheTTL(), &logger)
	}

	bus := events.NewEventBus(&logger)
	eventLogger := logger.With().Str("component", "events").Logger()
	bus.Subscribe(events.All, events.LogHandler(&eventLogger))

	var svcCache service.ConfigCache
	if configCache != nil {
		svcCache = configCache
	}
	svc := service.NewAvailabilityService(db, svcCache, bus, m, loc, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = config.WatchStations(ctx, cfg.StationsConfigPath, cfg.ReloadInterval(),
		func(sc *config.StationsConfig) {
			if err := db.SyncStationsFromConfig(ctx, sc); err != nil {
				logger.Error().Err(err).Msg("failed to apply stations config")
				return
			}
			if err := db.EnsureDefaultSchedules(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to ensure default schedules")
			}
			configCache.InvalidateAll(ctx)
			logger.Info().Str("config", sc.String()).Msg("stations config loaded")
		},
		func(err error) {
			logger.Error().Err(err).Msg("stations config reload failed; keeping previous")
		},
	)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.StationsConfigPath).Msg("stations config not loaded; using stored stations")
	}
	if err := db.EnsureDefaultSchedules(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to ensure default schedules")
	}

	backup := database.NewBackupService(db, cfg.Backup, &logger)
	go backup.Start(ctx)

	if cfg.Monitor.Enabled {
		mon := monitor.New(monitor.Config{
			Interval:             cfg.MonitorInterval(),
			EvaluationsPerSecond: cfg.Monitor.EvaluationsPerSecond,
		}, svc, bus, m, &logger)
		go mon.Start(ctx)
	}

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(api.Options{
		Port:               cfg.HTTP.Port,
		APIKey:             cfg.HTTP.APIKey,
		RateLimitPerMinute: cfg.HTTP.RateLimitPerMinute,
	}, svc, m, &logger)

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("api server shutdown error")
		}
	}()

	logger.Info().Str("timezone", loc.String()).Msg("stationhours started")
	if err := server.Start(); err != nil {
		logger.Error().Err(err).Msg("api server error")
		stop()
	}
	logger.Info().Msg("stationhours stopped")
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	serve(ctx, "health", port, mux, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	serve(ctx, "metrics", port, mux, logger)
}

func serve(ctx context.Context, name string, port int, h http.Handler, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("server", name).Msg("server error")
	}
}
