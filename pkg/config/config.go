// Package config handles configuration loading and management
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fissio/fissio/pkg/types"
)

// ConfigVersion is the config file format version this build understands
const ConfigVersion = "1.0"

// Manager handles configuration operations
type Manager struct{}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{}
}

// LoadConfig loads an engine configuration from a file. JSON is tried first,
// then YAML (converted through JSON so both share one set of struct tags).
func (m *Manager) LoadConfig(path string) (*types.EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg types.EngineConfig

	// Try JSON first
	if err := json.Unmarshal(data, &cfg); err == nil {
		m.applyDefaults(&cfg)
		if err := m.ValidateConfig(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	// Try YAML, round-tripping through JSON
	var yamlData map[string]interface{}
	if err := yaml.Unmarshal(data, &yamlData); err == nil {
		jsonData, err := json.Marshal(yamlData)
		if err == nil {
			if err := json.Unmarshal(jsonData, &cfg); err == nil {
				m.applyDefaults(&cfg)
				if err := m.ValidateConfig(&cfg); err != nil {
					return nil, err
				}
				return &cfg, nil
			}
		}
	}

	return nil, fmt.Errorf("failed to parse config as JSON or YAML")
}

// SaveConfig writes a configuration to a file as indented JSON
func (m *Manager) SaveConfig(cfg *types.EngineConfig, path string) error {
	if err := m.ValidateConfig(cfg); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ValidateConfig validates a configuration
func (m *Manager) ValidateConfig(cfg *types.EngineConfig) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if cfg.Version != ConfigVersion {
		return fmt.Errorf("unsupported config version: %s", cfg.Version)
	}
	if cfg.TrialLimit < 1 {
		return fmt.Errorf("trialLimit must be >= 1, got %d", cfg.TrialLimit)
	}
	if cfg.RhoWorkers < 1 {
		return fmt.Errorf("rhoWorkers must be >= 1, got %d", cfg.RhoWorkers)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %dms", cfg.Timeout)
	}
	if cfg.GracePeriod <= 0 {
		return fmt.Errorf("gracePeriod must be positive, got %dms", cfg.GracePeriod)
	}
	if cfg.MonitorInterval <= 0 {
		return fmt.Errorf("monitorInterval must be positive, got %dms", cfg.MonitorInterval)
	}
	if cfg.StallTimeout <= 0 {
		return fmt.Errorf("stallTimeout must be positive, got %dms", cfg.StallTimeout)
	}
	if cfg.P1BaseBound < 2 {
		return fmt.Errorf("p1BaseBound must be >= 2, got %d", cfg.P1BaseBound)
	}
	if cfg.P1MaxBound < cfg.P1BaseBound {
		return fmt.Errorf("p1MaxBound (%d) must be >= p1BaseBound (%d)", cfg.P1MaxBound, cfg.P1BaseBound)
	}
	if cfg.RhoMaxIterations < 1 {
		return fmt.Errorf("rhoMaxIterations must be >= 1, got %d", cfg.RhoMaxIterations)
	}
	if cfg.BatchSize < 1 {
		return fmt.Errorf("batchSize must be >= 1, got %d", cfg.BatchSize)
	}
	return nil
}

// GetDefaultConfig returns the default engine configuration
func (m *Manager) GetDefaultConfig() *types.EngineConfig {
	return &types.EngineConfig{
		Version:          ConfigVersion,
		TrialLimit:       1000,
		RhoWorkers:       4,
		Timeout:          10000, // 10s race budget
		GracePeriod:      250,
		MonitorInterval:  1000,
		StallTimeout:     2000,
		P1BaseBound:      1000,
		P1MaxBound:       100000,
		RhoMaxIterations: 10000000,
		BatchSize:        64,
	}
}

// applyDefaults fills zero-valued fields so partial config files work
func (m *Manager) applyDefaults(cfg *types.EngineConfig) {
	def := m.GetDefaultConfig()

	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	if cfg.TrialLimit == 0 {
		cfg.TrialLimit = def.TrialLimit
	}
	if cfg.RhoWorkers == 0 {
		cfg.RhoWorkers = def.RhoWorkers
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = def.GracePeriod
	}
	if cfg.MonitorInterval == 0 {
		cfg.MonitorInterval = def.MonitorInterval
	}
	if cfg.StallTimeout == 0 {
		cfg.StallTimeout = def.StallTimeout
	}
	if cfg.P1BaseBound == 0 {
		cfg.P1BaseBound = def.P1BaseBound
	}
	if cfg.P1MaxBound == 0 {
		cfg.P1MaxBound = def.P1MaxBound
	}
	if cfg.RhoMaxIterations == 0 {
		cfg.RhoMaxIterations = def.RhoMaxIterations
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = def.BatchSize
	}
}
