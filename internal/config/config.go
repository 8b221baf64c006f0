package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Material is one waste catalogue entry the park accepts.
type Material struct {
	Code        string `yaml:"code"`
	Description string `yaml:"description"`
}

// ParkConfig is the per-deployment intake policy, loaded from YAML.
type ParkConfig struct {
	// ClassificationToleranceKg is how far classification line sums may
	// deviate from the weighed net. Zero means exact.
	ClassificationToleranceKg float64 `yaml:"classificationToleranceKg"`

	// WeighingMaxReadingAgeSeconds is how old a scale reading may be
	// before it is rejected as stale.
	WeighingMaxReadingAgeSeconds int `yaml:"weighingMaxReadingAgeSeconds"`

	// Materials is the accepted waste catalogue. Empty means any code.
	Materials []Material `yaml:"materials"`
}

// Default returns the policy used when no file is configured.
func Default() *ParkConfig {
	return &ParkConfig{
		ClassificationToleranceKg:    0,
		WeighingMaxReadingAgeSeconds: 300,
	}
}

// Load reads the park configuration file. An empty path yields defaults.
func Load(path string) (*ParkConfig, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read park config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse park config %s: %w", path, err)
	}
	if cfg.ClassificationToleranceKg < 0 {
		return nil, fmt.Errorf("classificationToleranceKg must not be negative")
	}
	if cfg.WeighingMaxReadingAgeSeconds <= 0 {
		return nil, fmt.Errorf("weighingMaxReadingAgeSeconds must be positive")
	}
	return cfg, nil
}

// MaxReadingAge returns the staleness cutoff as a duration.
func (c *ParkConfig) MaxReadingAge() time.Duration {
	return time.Duration(c.WeighingMaxReadingAgeSeconds) * time.Second
}

// KnownMaterial reports whether the code is in the catalogue. An empty
// catalogue accepts everything.
func (c *ParkConfig) KnownMaterial(code string) bool {
	if len(c.Materials) == 0 {
		return true
	}
	for _, m := range c.Materials {
		if m.Code == code {
			return true
		}
	}
	return false
}

// MaterialDescription returns the catalogue description, empty if unknown.
func (c *ParkConfig) MaterialDescription(code string) string {
	for _, m := range c.Materials {
		if m.Code == code {
			return m.Description
		}
	}
	return ""
}
