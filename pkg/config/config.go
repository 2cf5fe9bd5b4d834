// Package config loads the optional YAML defaults file of the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/vgkit/vgdepth/pkg/coverage"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable consulted when no --config flag is given.
const EnvPath = "VGDEPTH_CONFIG"

// Config holds defaults for flags that were not set on the command line.
type Config struct {
	Threads       int    `yaml:"threads"`
	Format        string `yaml:"format"`
	SelfExclusion string `yaml:"self_exclusion"`
	LogLevel      string `yaml:"log_level"`
	MetricsFile   string `yaml:"metrics_file"`
	Output        string `yaml:"output"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Threads:       1,
		Format:        "tsv",
		SelfExclusion: coverage.ExcludeAll.String(),
		LogLevel:      "info",
	}
}

// Load reads path over the built-in defaults. An empty path falls back to
// $VGDEPTH_CONFIG; if that is unset too, the defaults are returned.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Threads)
	}
	switch c.Format {
	case "tsv", "json":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	if _, err := coverage.ParseSelfExclusion(c.SelfExclusion); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

// Level returns the parsed log level. It assumes a validated config.
func (c Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
