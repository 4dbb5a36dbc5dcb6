package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // pprof is intentionally exposed when pprofAddr is configured
	"time"

	"github.com/ethpandaops/tally/pkg/api"
	"github.com/ethpandaops/tally/pkg/export"
	"github.com/ethpandaops/tally/pkg/frontend"
	"github.com/ethpandaops/tally/pkg/history"
	"github.com/ethpandaops/tally/pkg/observability"
	"github.com/ethpandaops/tally/pkg/scheduler"
	"github.com/ethpandaops/tally/pkg/store"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const readyTimeout = 5 * time.Second

// Service encapsulates the report service application
type Service struct {
	config *Config
	log    *logrus.Logger

	store     *store.Store
	exporter  *export.Exporter
	scheduler scheduler.Service
	api       api.Service

	// Servers
	healthServer *http.Server
	pprofServer  *http.Server

	redisClient *goredis.Client
}

// NewService creates a new report service application
func NewService(log *logrus.Logger, cfg *Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var (
		redisClient *goredis.Client
		recorder    history.Recorder = history.NopRecorder{}
		keyPrefix   string
	)

	if cfg.Redis != nil {
		client, err := cfg.Redis.NewClient()
		if err != nil {
			return nil, err
		}

		redisClient = client
		recorder = history.NewRedisRecorder(client, cfg.Redis.PrefixKey("exports"), cfg.Redis.MaxHistory)
		keyPrefix = cfg.Redis.PrefixKey("")
	}

	storeService := store.New(log, &cfg.Store)

	exporter, err := export.NewExporter(log, &cfg.Export, storeService, recorder)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	schedulerService, err := scheduler.NewService(log, &cfg.Scheduler, exporter, redisClient, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler service: %w", err)
	}

	// Create frontend handler if enabled
	var frontendHandler http.Handler
	if cfg.Frontend.Enabled {
		frontendHandler, err = frontend.NewHandler()
		if err != nil {
			return nil, fmt.Errorf("failed to create frontend handler: %w", err)
		}
	}

	apiService := api.NewService(&cfg.API, exporter, schedulerService, frontendHandler, log)

	return &Service{
		log:    log,
		config: cfg,

		redisClient: redisClient,
		store:       storeService,
		exporter:    exporter,
		scheduler:   schedulerService,
		api:         apiService,
	}, nil
}

// Exporter returns the report exporter
func (a *Service) Exporter() *export.Exporter {
	return a.exporter
}

// Scheduler returns the scheduled export service
func (a *Service) Scheduler() scheduler.Service {
	return a.scheduler
}

// Start initializes and starts the application
func (a *Service) Start() error {
	a.log.Info("Starting tally...")

	ctx := context.Background()

	// Start metrics server
	observability.StartMetricsServer(a.log, a.config.MetricsAddr)

	// Start health check server if configured
	if a.config.HealthCheckAddr != "" {
		a.startHealthCheck()
	}

	// Start pprof server if configured
	if a.config.PProfAddr != "" {
		a.startPProf()
	}

	if a.redisClient != nil {
		if err := a.redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	// Start data file watcher
	if err := a.store.Start(ctx); err != nil {
		return fmt.Errorf("failed to start store: %w", err)
	}

	// Start scheduler service
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Start API and frontend service
	if err := a.api.Start(ctx); err != nil {
		return fmt.Errorf("failed to start API and frontend service: %w", err)
	}

	a.log.Info("tally started successfully")

	return nil
}

// Stop gracefully shuts down the application
func (a *Service) Stop() error {
	a.log.Info("Shutting down tally...")

	// Create a timeout context for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Helper function to stop a service
	stopService := func(name string, stopFunc func() error) {
		if stopFunc == nil {
			return
		}
		if err := stopFunc(); err != nil {
			a.log.WithError(err).Errorf("Failed to stop %s", name)
		}
	}

	// 1. Stop scheduler first (finish running exports)
	if a.scheduler != nil {
		stopService("scheduler service", a.scheduler.Stop)
	}

	// 2. Stop API/frontend
	if a.api != nil {
		stopService("API and frontend service", a.api.Stop)
	}

	// 3. Stop data file watcher
	if a.store != nil {
		stopService("store", a.store.Stop)
	}

	// 4. Close Redis (now safe, nothing is using it)
	if a.redisClient != nil {
		stopService("Redis client", a.redisClient.Close)
	}

	// Stop HTTP servers
	stopService("metrics server", func() error { return observability.StopMetricsServer(ctx) })

	if a.healthServer != nil {
		stopService("health check server", func() error { return a.healthServer.Shutdown(ctx) })
	}
	if a.pprofServer != nil {
		stopService("pprof server", func() error { return a.pprofServer.Shutdown(ctx) })
	}

	return nil
}

// healthHandler serves /health and /ready. Ready requires loadable data files
// and, when configured, a reachable Redis.
func (a *Service) healthHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if _, err := a.store.Snapshot(ctx); err != nil {
			a.log.WithError(err).Warn("Readiness check failed: store")
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)

			return
		}

		if a.redisClient != nil {
			if err := a.redisClient.Ping(ctx).Err(); err != nil {
				a.log.WithError(err).Warn("Readiness check failed: redis")
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)

				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return mux
}

func (a *Service) startHealthCheck() {
	a.log.WithField("addr", a.config.HealthCheckAddr).Info("Starting health check server")

	a.healthServer = &http.Server{
		Addr:              a.config.HealthCheckAddr,
		Handler:           a.healthHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := a.healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("Health check server failed")
		}
	}()
}

func (a *Service) startPProf() {
	a.log.WithField("addr", a.config.PProfAddr).Info("Starting pprof server")

	a.pprofServer = &http.Server{
		Addr:              a.config.PProfAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	go func() {
		if err := a.pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("Pprof server failed")
		}
	}()
}
