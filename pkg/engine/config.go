// Package engine wires the report service together
package engine

import (
	"errors"
	"fmt"

	"github.com/ethpandaops/tally/pkg/api"
	"github.com/ethpandaops/tally/pkg/export"
	"github.com/ethpandaops/tally/pkg/frontend"
	"github.com/ethpandaops/tally/pkg/redis"
	"github.com/ethpandaops/tally/pkg/scheduler"
	"github.com/ethpandaops/tally/pkg/store"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidLogLevel is returned when the logging level is not a logrus level
	ErrInvalidLogLevel = errors.New("invalid logging level")
	// ErrFrontendRequiresAPI is returned when the report page is enabled without the API
	ErrFrontendRequiresAPI = errors.New("frontend requires the api to be enabled")
)

// Config represents the complete engine configuration
type Config struct {
	// Core settings
	Logging         string `yaml:"logging" default:"info"`
	MetricsAddr     string `yaml:"metricsAddr" default:":9091"`
	HealthCheckAddr string `yaml:"healthCheckAddr"`
	PProfAddr       string `yaml:"pprofAddr"`

	// Data files
	Store store.Config `yaml:"store"`

	// Redis is optional. Without it the export history is not kept and
	// scheduled jobs run on every instance.
	Redis *redis.Config `yaml:"redis"`

	// API service configuration
	API api.Config `yaml:"api"`

	// Frontend report page configuration
	Frontend frontend.Config `yaml:"frontend"`

	// Spreadsheet export settings
	Export export.Config `yaml:"export"`

	// Scheduled exports
	Scheduler scheduler.Config `yaml:"scheduler"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Logging); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging)
	}

	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	if c.Redis != nil {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}

	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if c.Frontend.Enabled && !c.API.Enabled {
		return ErrFrontendRequiresAPI
	}

	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	return nil
}
