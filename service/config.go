package service

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/persist/storage"
)

const (
	defaultListen   = ":8080"
	defaultObserver = "slog"
)

// envPrefix namespaces every setting in the environment, e.g.
// PERSIST_SERVER_LISTEN for server.listen.
const envPrefix = "PERSIST"

// legacyEnv lists the environment names the storage settings were
// historically read from. A PERSIST_* variable wins over its legacy name.
var legacyEnv = map[string]string{
	"storage.type":              "STORAGE_TYPE",
	"storage.base_path":         "STORAGE_BASE_PATH",
	"storage.bucket":            "S3_BUCKET_NAME",
	"storage.endpoint_url":      "S3_ENDPOINT_URL",
	"storage.access_key_id":     "AWS_ACCESS_KEY_ID",
	"storage.secret_access_key": "AWS_SECRET_ACCESS_KEY",
	"storage.region":            "AWS_REGION",
}

// envKeys are the settings bound to environment variables.
var envKeys = []string{
	"storage.type",
	"storage.base_path",
	"storage.bucket",
	"storage.endpoint_url",
	"storage.access_key_id",
	"storage.secret_access_key",
	"storage.region",
	"server.listen",
	"observer",
	"disable_metrics",
}

// ServerConfig configures the HTTP listener of persistd serve.
type ServerConfig struct {
	Listen string `json:"listen" yaml:"listen" mapstructure:"listen"`
}

// Config holds initialization parameters for the persistence service.
type Config struct {
	Storage        storage.Config `json:"storage" yaml:"storage" mapstructure:"storage"`
	Server         ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
	Observer       string         `json:"observer" yaml:"observer" mapstructure:"observer"`
	DisableMetrics bool           `json:"disable_metrics,omitempty" yaml:"disable_metrics,omitempty" mapstructure:"disable_metrics"`
}

// DefaultConfig returns a Config with local storage, slog events and
// metrics enabled.
func DefaultConfig() Config {
	return Config{
		Storage:  storage.DefaultConfig(),
		Server:   ServerConfig{Listen: defaultListen},
		Observer: defaultObserver,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	c.Storage.Merge(&source.Storage)

	if source.Server.Listen != "" {
		c.Server.Listen = source.Server.Listen
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.DisableMetrics {
		c.DisableMetrics = true
	}
}

// Validate checks the storage section and the listener address.
func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if c.Server.Listen == "" {
		return errors.New("server.listen is required")
	}
	return nil
}

// LoadConfig reads a YAML config file, overlays environment variables,
// merges the result over defaults and validates it. An empty filename
// skips the file and loads defaults plus environment only.
func LoadConfig(filename string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	for _, key := range envKeys {
		names := []string{envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
		if legacy, ok := legacyEnv[key]; ok {
			names = append(names, legacy)
		}
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var loaded Config
	if err := v.Unmarshal(&loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Merge(&loaded)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadSourceConfig reads the storage section of a YAML config file without
// the environment overlay, merged over storage defaults and validated. It
// describes a second storage location, such as a migration source, while
// the environment keeps describing the service's own storage.
func LoadSourceConfig(filename string) (*storage.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(filename)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := v.Unmarshal(&loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := storage.DefaultConfig()
	cfg.Merge(&loaded.Storage)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteYAML renders c as YAML. The secret key is never written and the
// access key id is masked.
func (c *Config) WriteYAML(w io.Writer) error {
	out := *c
	if out.Storage.AccessKeyID != "" {
		out.Storage.AccessKeyID = redacted
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

const redacted = "[redacted]"
