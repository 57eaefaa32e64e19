package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/c360/statestore/errors"
)

// Default flush cadence for deferred durable writes.
const DefaultFlushInterval = 100 * time.Millisecond

// StateFileName is the durable store file name used under both the global
// storage root and each workspace storage folder.
const StateFileName = "state.db"

// Config describes where storage lives and how the durable backend behaves.
type Config struct {
	// GlobalRoot is the directory holding the single global state.db.
	GlobalRoot string `json:"globalRoot"`

	// WorkspaceRoot is the directory under which each workspace gets its own
	// storage folder, named by the workspace identity hash.
	WorkspaceRoot string `json:"workspaceRoot"`

	// UseInMemory routes both scopes to the in-memory SQLite sentinel so test
	// harnesses never touch disk.
	UseInMemory bool `json:"useInMemory,omitempty"`

	// FlushIntervalMS overrides the deferred-write flush cadence of the
	// durable store, in milliseconds. Zero means DefaultFlushInterval.
	FlushIntervalMS int `json:"flushIntervalMs,omitempty"`
}

// FlushInterval returns the effective flush cadence.
func (c Config) FlushInterval() time.Duration {
	if c.FlushIntervalMS <= 0 {
		return DefaultFlushInterval
	}
	return time.Duration(c.FlushIntervalMS) * time.Millisecond
}

// Validate checks the configuration for completeness and consistency.
func (c Config) Validate() error {
	if c.UseInMemory {
		// Paths are unused in memory mode.
		return nil
	}
	if c.GlobalRoot == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate", "globalRoot is required")
	}
	if c.WorkspaceRoot == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate", "workspaceRoot is required")
	}
	if c.FlushIntervalMS < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("flushIntervalMs must be >= 0, got %d", c.FlushIntervalMS),
			"config", "Validate", "flush interval out of range")
	}
	return nil
}

// LoadFromFile reads and validates a JSON configuration file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.WrapInvalid(err, "config", "LoadFromFile", "read config file")
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.WrapInvalid(err, "config", "LoadFromFile", "parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
