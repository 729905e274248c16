// Package config provides engine configuration for the event-log engine -
// NO infrastructure URLs.
//
// This module contains ONLY configuration relevant to the engine's own
// behavior:
//   - Append Writer limits (line-size ceiling, clock-skew tolerance)
//   - Reducer checkpoint cadence
//   - Export / stress-harness opt-ins (both default false: the engine
//     never exports or runs the stress harness without explicit consent)
//
// Logging level and YAML overlay loading live here too, following the
// teacher's pattern of a single environment-agnostic config struct plus a
// global accessor set once at bootstrap.
package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// EngineConfig holds engine-wide configuration. It is infrastructure
// agnostic: nothing here names a database, a queue, or a network endpoint,
// since this engine has none.
type EngineConfig struct {
	// Append Writer
	LineSizeCeilingBytes int    `yaml:"line_size_ceiling_bytes" json:"line_size_ceiling_bytes"`
	ClockSkewToleranceNS uint64 `yaml:"clock_skew_tolerance_ns" json:"clock_skew_tolerance_ns"`

	// Reducer
	CheckpointIntervalEvents uint64 `yaml:"checkpoint_interval_events" json:"checkpoint_interval_events"`

	// Opt-ins. Both default false: share-safe export and the stress
	// harness are never run implicitly.
	ExportEnabled bool `yaml:"export_enabled" json:"export_enabled"`
	StressEnabled bool `yaml:"stress_enabled" json:"stress_enabled"`

	// Logging
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultEngineConfig returns an EngineConfig with default values.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		LineSizeCeilingBytes:     1 << 20, // 1 MiB
		ClockSkewToleranceNS:     50_000_000,
		CheckpointIntervalEvents: 5000,
		ExportEnabled:            false,
		StressEnabled:            false,
		LogLevel:                 "info",
	}
}

// LoadYAMLOverlay reads a YAML file at path and applies any fields it sets
// on top of DefaultEngineConfig's values. A missing file is not an error:
// it simply means no overlay was supplied.
func LoadYAMLOverlay(path string) (*EngineConfig, error) {
	cfg := DefaultEngineConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading overlay %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing overlay %s: %w", path, err)
	}
	return cfg, nil
}

var (
	globalEngineConfig *EngineConfig
	configMu           sync.RWMutex
)

// GetEngineConfig returns the injected configuration, or defaults if none
// has been set.
func GetEngineConfig() *EngineConfig {
	configMu.RLock()
	defer configMu.RUnlock()

	if globalEngineConfig == nil {
		return DefaultEngineConfig()
	}
	return globalEngineConfig
}

// SetEngineConfig sets the global engine configuration. Called once by the
// CLI entrypoint after parsing flags and any YAML overlay.
func SetEngineConfig(cfg *EngineConfig) {
	configMu.Lock()
	defer configMu.Unlock()

	globalEngineConfig = cfg
}

// ResetEngineConfig resets the global config to nil, so the next
// GetEngineConfig call returns defaults. Useful for tests.
func ResetEngineConfig() {
	configMu.Lock()
	defer configMu.Unlock()

	globalEngineConfig = nil
}
