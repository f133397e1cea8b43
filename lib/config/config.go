// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"filippo.io/age"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/vectorlog/lib/framelog"
	"github.com/bureau-foundation/vectorlog/lib/schema/wearable"
	"github.com/bureau-foundation/vectorlog/lib/sealed"
)

// EnvironmentVariable names the variable [Load] reads the config path
// from.
const EnvironmentVariable = "VECTORLOG_CONFIG"

// ErrNoSources is returned by Validate when no source is configured.
var ErrNoSources = errors.New("at least one source is required")

// Config is the configuration of one recording session.
type Config struct {
	// Output configures the vector log written by the session.
	Output OutputConfig `yaml:"output"`

	// Delimiter joins key path segments.
	// Default: ::
	Delimiter string `yaml:"delimiter"`

	// FlushInterval is how often the log is synced to disk, as a Go
	// duration string.
	// Default: 1s
	FlushInterval string `yaml:"flush_interval"`

	// BufferMaxBytes bounds the frames waiting to be written. The
	// oldest frames are dropped beyond it.
	// Default: 16777216
	BufferMaxBytes int `yaml:"buffer_max_bytes"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Sources lists the message producers, in frame key order.
	Sources []SourceConfig `yaml:"sources"`

	// dir is the directory of the loaded file, for relative paths.
	dir string
}

// OutputConfig configures the vector log file.
type OutputConfig struct {
	// Path is the log file. It is truncated when recording starts.
	Path string `yaml:"path"`

	// Compression is none, lz4 or zstd.
	// Default: lz4
	Compression string `yaml:"compression"`

	// Recipients are age X25519 recipients (age1...). When set, the
	// whole log is encrypted to them.
	Recipients []string `yaml:"recipients,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address serving /metrics, e.g. "127.0.0.1:9464".
	// Empty disables the endpoint.
	Listen string `yaml:"listen,omitempty"`
}

// SourceConfig configures one message producer.
type SourceConfig struct {
	// Name identifies the source in logs and metrics.
	Name string `yaml:"name"`

	// Prefix roots every key the source produces. Prefixes must be
	// distinct across sources.
	Prefix string `yaml:"prefix"`

	// Kind is robot-state, target-set or sensor-reading.
	Kind string `yaml:"kind"`

	// Input is a file holding a CBOR sequence of messages.
	Input string `yaml:"input"`
}

// Default returns the default configuration, used as the base that a
// config file is loaded over.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Compression: framelog.CompressionLZ4.String(),
		},
		Delimiter:      "::",
		FlushInterval:  "1s",
		BufferMaxBytes: 16 << 20,
	}
}

// Load loads configuration from the file named by VECTORLOG_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your session config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. The result
// is not validated; call Validate before use.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(absolute)
	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands variables in path fields and anchors
// relative paths at the config file's directory.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":                 os.Getenv("HOME"),
		"VECTORLOG_CONFIG_DIR": c.dir,
	}

	c.Output.Path = c.resolvePath(expandVars(c.Output.Path, vars))
	for index := range c.Sources {
		c.Sources[index].Input = c.resolvePath(expandVars(c.Sources[index].Input, vars))
	}
}

func (c *Config) resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors, reporting all of
// them joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Output.Path == "" {
		errs = append(errs, fmt.Errorf("output.path is required"))
	}
	if _, err := framelog.ParseCompressionTag(c.Output.Compression); err != nil {
		errs = append(errs, fmt.Errorf("output.compression: %w", err))
	}
	if _, err := c.AgeRecipients(); err != nil {
		errs = append(errs, fmt.Errorf("output.recipients: %w", err))
	}

	if c.Delimiter == "" {
		errs = append(errs, fmt.Errorf("delimiter must not be empty"))
	}
	if interval, err := time.ParseDuration(c.FlushInterval); err != nil {
		errs = append(errs, fmt.Errorf("flush_interval: %w", err))
	} else if interval <= 0 {
		errs = append(errs, fmt.Errorf("flush_interval must be positive, got %s", c.FlushInterval))
	}
	if c.BufferMaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("buffer_max_bytes must be positive, got %d", c.BufferMaxBytes))
	}

	if len(c.Sources) == 0 {
		errs = append(errs, ErrNoSources)
	}
	names := make(map[string]bool, len(c.Sources))
	prefixes := make(map[string]string, len(c.Sources))
	for index, source := range c.Sources {
		label := fmt.Sprintf("sources[%d]", index)
		if source.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", label))
		} else {
			label = fmt.Sprintf("source %q", source.Name)
			if names[source.Name] {
				errs = append(errs, fmt.Errorf("%s: duplicate name", label))
			}
			names[source.Name] = true
		}
		if source.Prefix == "" {
			errs = append(errs, fmt.Errorf("%s: prefix is required", label))
		} else if other, taken := prefixes[source.Prefix]; taken {
			errs = append(errs, fmt.Errorf("%s: prefix %q already used by %q", label, source.Prefix, other))
		} else {
			prefixes[source.Prefix] = source.Name
		}
		if _, err := wearable.ParseKind(source.Kind); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
		}
		if source.Input == "" {
			errs = append(errs, fmt.Errorf("%s: input is required", label))
		}
	}

	return errors.Join(errs...)
}

// Compression returns the parsed output compression.
func (c *Config) Compression() (framelog.CompressionTag, error) {
	return framelog.ParseCompressionTag(c.Output.Compression)
}

// FlushIntervalDuration returns the parsed flush interval.
func (c *Config) FlushIntervalDuration() (time.Duration, error) {
	return time.ParseDuration(c.FlushInterval)
}

// AgeRecipients parses Output.Recipients. It returns nil when the log
// is not encrypted.
func (c *Config) AgeRecipients() ([]age.Recipient, error) {
	if len(c.Output.Recipients) == 0 {
		return nil, nil
	}
	return sealed.ParseRecipients(c.Output.Recipients)
}
