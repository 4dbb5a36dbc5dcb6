package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/creasty/defaults"
	"github.com/ethpandaops/tally/pkg/engine"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "./config.yaml"

// loadConfig loads the engine configuration from a YAML file on top of the
// defaults. With allowMissing a missing file yields the defaults.
func loadConfig(path string, allowMissing bool) (*engine.Config, error) {
	if path == "" {
		path = defaultConfigFile
	}

	config := &engine.Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	yamlFile, err := os.ReadFile(path) //nolint:gosec // User-provided config file path
	if err != nil {
		if allowMissing && errors.Is(err, fs.ErrNotExist) {
			return config, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, err
	}

	// Optional sections decoded from YAML skip the struct defaults
	if config.Redis != nil {
		if err := defaults.Set(config.Redis); err != nil {
			return nil, err
		}
	}

	return config, nil
}
