// Package config loads thread pool configuration from YAML files
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jzx17/threadpool/pkg/worker"
)

// LoadYAML loads configuration from a YAML file into target
func LoadYAML(path string, target interface{}) error {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return nil
}

// LoadPoolConfig reads a pool configuration. Keys missing from the file keep
// their defaults and the result is validated before it is returned.
//
//	name: ingest
//	mode: dynamic
//	queue_capacity: 512
//	max_workers: 32
//	idle_timeout: 30s
//	submit_timeout: 2s
func LoadPoolConfig(path string) (*worker.Config, error) {
	cfg := worker.DefaultConfig()
	if err := LoadYAML(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool config %s: %w", path, err)
	}
	return cfg, nil
}
