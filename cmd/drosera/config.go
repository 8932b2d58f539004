package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// AnalysisConfig describes the chain to analyze and how to analyze it.
type AnalysisConfig struct {
	ModelName      string      `json:"model_name"`
	Matrix         [][]float64 `json:"matrix"`
	Labels         []string    `json:"labels,omitempty"`
	SampleSteps    int         `json:"sample_steps"`
	PropagateSteps int         `json:"propagate_steps"`
	Seed           uint64      `json:"seed"`
	KT             float64     `json:"kt"`
}

// Config is the top-level configuration struct.
type Config struct {
	DatabasePath string          `json:"database_path"`
	LogLevel     string          `json:"log_level"`
	Analysis     *AnalysisConfig `json:"analysis"`
}

// DefaultConfig creates a configuration with default values: a small
// 3-state chain and enough steps for the propagated distribution to settle.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath: "./data/drosera.db?_journal_mode=WAL&_busy_timeout=5000",
		LogLevel:     "info",
		Analysis: &AnalysisConfig{
			ModelName: "default",
			Matrix: [][]float64{
				{0.6, 0.3, 0.1},
				{0.2, 0.3, 0.5},
				{0.4, 0.1, 0.5},
			},
			Labels:         []string{"A", "B", "C"},
			SampleSteps:    100000,
			PropagateSteps: 200,
			Seed:           1,
			KT:             2.479, // RT at 298 K, kJ/mol
		},
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Log a warning instead of failing, as the run can still proceed with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}
