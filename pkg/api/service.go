package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethpandaops/tally/pkg/api/handlers"
	"github.com/ethpandaops/tally/pkg/export"
	"github.com/ethpandaops/tally/pkg/scheduler"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/sirupsen/logrus"
)

// Service defines the API service interface
type Service interface {
	Start(ctx context.Context) error
	Stop() error
}

type service struct {
	app             *fiber.App
	server          *http.Server
	config          *Config
	exporter        *export.Exporter
	scheduler       scheduler.Service
	frontendHandler http.Handler
	log             logrus.FieldLogger
}

// NewService creates a new API and frontend service. frontendHandler may be nil.
func NewService(cfg *Config, exporter *export.Exporter, sched scheduler.Service, frontendHandler http.Handler, log logrus.FieldLogger) Service {
	return &service{
		config:          cfg,
		exporter:        exporter,
		scheduler:       sched,
		frontendHandler: frontendHandler,
		log:             log.WithField("service", "api"),
	}
}

// newApp builds the Fiber app with all routes
func (s *service) newApp(ctx context.Context) (*fiber.App, error) {
	doc, err := LoadOpenAPI(ctx)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		AppName:      "Tally API",
	})

	setupMiddleware(app, s.config.UserHeader)

	server := handlers.NewServer(s.exporter, s.scheduler, s.config.UserHeader, s.log)

	apiV1 := app.Group("/api/v1")

	server.Register(apiV1)

	apiV1.Get("/openapi.json", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(doc)
	})

	// Register frontend handler as fallback for non-API routes
	if s.frontendHandler != nil {
		app.Use(adaptor.HTTPHandler(s.frontendHandler))
	}

	return app, nil
}

// Start initializes and starts the API server with frontend integration
func (s *service) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.log.Info("API service is disabled")
		return nil
	}

	app, err := s.newApp(ctx)
	if err != nil {
		return err
	}

	s.app = app

	s.server = &http.Server{
		Addr:              s.config.Addr,
		Handler:           adaptor.FiberApp(s.app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.log.WithField("addr", s.config.Addr).Info("Starting API and frontend server")

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("Server failed to start")
		}
	}()

	return nil
}

// Stop gracefully shuts down the API server
func (s *service) Stop() error {
	if s.server == nil {
		return nil
	}

	s.log.Info("Stopping API and frontend server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
