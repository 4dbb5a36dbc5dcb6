// Package api provides the REST API for viewing and downloading reports.
package api

import "errors"

var (
	// ErrAPIAddrRequired is returned when API is enabled but no address is configured
	ErrAPIAddrRequired = errors.New("api address is required when API is enabled")
	// ErrUserHeaderRequired is returned when no user id header is configured
	ErrUserHeaderRequired = errors.New("user header is required when API is enabled")
)

// Config represents API service configuration
type Config struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Addr    string `yaml:"addr" default:":8080"`
	// UserHeader carries the requesting user's id for download file names
	UserHeader string `yaml:"userHeader" default:"X-User-ID"`
}

// Validate validates the API configuration
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Addr == "" {
		return ErrAPIAddrRequired
	}

	if c.UserHeader == "" {
		return ErrUserHeaderRequired
	}

	return nil
}
