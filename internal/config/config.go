// Package config loads the YAML settings of the convolve command.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"image-convolution/internal/algorithms"
)

const (
	AcceleratorNone   = "none"
	AcceleratorOpenCV = "opencv"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Step is one entry of the processing pipeline.
type Step struct {
	Algorithm string                 `yaml:"algorithm"`
	Params    map[string]interface{} `yaml:"params,omitempty"`
	Enabled   *bool                  `yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the step runs; steps are enabled unless set false.
func (s Step) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Config holds everything the command reads from a file.
type Config struct {
	LogLevel    string `yaml:"log_level"`
	Debug       bool   `yaml:"debug"`
	Accelerator string `yaml:"accelerator"`
	ClipToROI   bool   `yaml:"clip_to_roi"`
	Workers     int    `yaml:"workers"`
	Steps       []Step `yaml:"steps"`
}

// Default returns the settings used without a config file.
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		Accelerator: AcceleratorNone,
		ClipToROI:   true,
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field and every step's parameters.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.Wrapf(ErrInvalidConfig, "log_level %q", c.LogLevel)
	}
	switch c.Accelerator {
	case AcceleratorNone, AcceleratorOpenCV:
	default:
		return errors.Wrapf(ErrInvalidConfig, "accelerator %q", c.Accelerator)
	}
	if c.Workers < 0 {
		return errors.Wrapf(ErrInvalidConfig, "workers %d", c.Workers)
	}
	for i, s := range c.Steps {
		if !algorithms.IsValidAlgorithm(s.Algorithm) {
			return errors.Wrapf(ErrInvalidConfig, "step %d: unknown algorithm %q", i, s.Algorithm)
		}
		if err := algorithms.ValidateParameters(s.Algorithm, s.Params); err != nil {
			return errors.Wrapf(ErrInvalidConfig, "step %d (%s): %v", i, s.Algorithm, err)
		}
	}
	return nil
}
