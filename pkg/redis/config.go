// Package redis provides Redis client configuration
package redis

import (
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Define static errors
var (
	ErrURLRequired = errors.New("redis url is required")
)

// Config holds Redis client configuration
type Config struct {
	URL    string `yaml:"url" validate:"required,url"`
	Prefix string `yaml:"prefix" default:"tally"`
	// MaxHistory bounds the number of export history entries kept
	MaxHistory int `yaml:"maxHistory" default:"1000"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrURLRequired
	}

	if _, err := goredis.ParseURL(c.URL); err != nil {
		return fmt.Errorf("invalid redis url: %w", err)
	}

	if c.Prefix == "" {
		c.Prefix = "tally"
	}

	return nil
}

// PrefixKey adds the configured prefix to a Redis key
func (c *Config) PrefixKey(key string) string {
	if c.Prefix == "" {
		return key
	}

	return fmt.Sprintf("%s:%s", c.Prefix, key)
}

// NewClient creates a client for the configured URL
func (c *Config) NewClient() (*goredis.Client, error) {
	opts, err := goredis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	return goredis.NewClient(opts), nil
}
