// Package config provides configuration loading for the churn CLI.
package config

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/churnkit/etl"
	"github.com/YuminosukeSato/churnkit/pkg/errors"
	"github.com/YuminosukeSato/churnkit/pkg/log"
)

// Config holds one churn run.
type Config struct {
	// Dataset
	URL         string   `yaml:"url"`
	Compression string   `yaml:"compression"`
	Label       string   `yaml:"label"`
	Positive    []string `yaml:"positive"`
	Features    []string `yaml:"features"`

	// Exploration
	Plot    bool   `yaml:"plot"`
	PlotOut string `yaml:"plotOut"`

	// Training
	Standardize bool    `yaml:"standardize"`
	C           float64 `yaml:"c"`
	ClassWeight string  `yaml:"classWeight"`

	// Runtime
	LogLevel  string        `yaml:"logLevel"`
	LogFormat string        `yaml:"logFormat"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Compression: string(etl.CompressionInfer),
		Label:       "Churn",
		Plot:        true,
		C:           1.0,
		ClassWeight: "none",
		LogLevel:    "info",
		LogFormat:   "json",
		Timeout:     2 * time.Minute,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and CHURNKIT_* environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := cfg.decode(b); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func (c *Config) decode(b []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from CHURNKIT_* variables. Unparseable values
// are ignored.
func (c *Config) ApplyEnv() {
	c.URL = getEnv("CHURNKIT_URL", c.URL)
	c.Compression = getEnv("CHURNKIT_COMPRESSION", c.Compression)
	c.Label = getEnv("CHURNKIT_LABEL", c.Label)
	c.Features = getEnvList("CHURNKIT_FEATURES", c.Features)
	c.Positive = getEnvList("CHURNKIT_POSITIVE", c.Positive)
	c.Plot = getEnvBool("CHURNKIT_PLOT", c.Plot)
	c.PlotOut = getEnv("CHURNKIT_PLOT_OUT", c.PlotOut)
	c.Standardize = getEnvBool("CHURNKIT_STANDARDIZE", c.Standardize)
	c.C = getEnvFloat("CHURNKIT_C", c.C)
	c.ClassWeight = getEnv("CHURNKIT_CLASS_WEIGHT", c.ClassWeight)
	c.LogLevel = getEnv("CHURNKIT_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("CHURNKIT_LOG_FORMAT", c.LogFormat)
	c.Timeout = getEnvDuration("CHURNKIT_TIMEOUT", c.Timeout)
}

// Validate reports the first invalid field as a ValidationError.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.NewValidationError("url", "dataset URL is required", c.URL)
	}
	if strings.TrimSpace(c.Label) == "" {
		return errors.NewValidationError("label", "label column is required", c.Label)
	}
	if _, err := etl.ParseCompression(c.Compression); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.NewValidationError("logLevel", "must be debug, info, warn or error", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "zerolog":
	default:
		return errors.NewValidationError("logFormat", "must be json or zerolog", c.LogFormat)
	}
	if c.C <= 0 {
		return errors.NewValidationError("c", "must be positive", c.C)
	}
	switch c.ClassWeight {
	case "none", "balanced":
	default:
		return errors.NewValidationError("classWeight", "must be none or balanced", c.ClassWeight)
	}
	if c.Timeout < 0 {
		return errors.NewValidationError("timeout", "must not be negative", c.Timeout)
	}
	for _, f := range c.Features {
		if f == c.Label {
			return errors.NewValidationError("features", "must not contain the label column", f)
		}
	}
	return nil
}

// SplitList splits a comma-separated list, dropping blank entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		return SplitList(val)
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
