package storage

import (
	"context"
	"fmt"
)

// Backend type discriminators.
const (
	TypeLocal       = "local"
	TypeObjectStore = "s3"
)

// typeAliases maps accepted spellings onto the canonical discriminators.
var typeAliases = map[string]string{
	TypeLocal:       TypeLocal,
	TypeObjectStore: TypeObjectStore,
	"object-store":  TypeObjectStore,
}

// Config selects and parameterizes one backend.
type Config struct {
	Type            string `json:"type" yaml:"type" mapstructure:"type"`
	BasePath        string `json:"base_path,omitempty" yaml:"base_path,omitempty" mapstructure:"base_path"`               // local root directory.
	Bucket          string `json:"bucket,omitempty" yaml:"bucket,omitempty" mapstructure:"bucket"`                         // object-store bucket name.
	EndpointURL     string `json:"endpoint_url,omitempty" yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`       // non-AWS S3-compatible endpoint.
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`    // optional static credentials.
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"-" mapstructure:"secret_access_key"`
	Region          string `json:"region,omitempty" yaml:"region,omitempty" mapstructure:"region"`
}

// DefaultConfig returns a local backend rooted at ./data, matching the
// directory the agents have always written to.
func DefaultConfig() Config {
	return Config{
		Type:     TypeLocal,
		BasePath: "data",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Type != "" {
		c.Type = source.Type
	}
	if source.BasePath != "" {
		c.BasePath = source.BasePath
	}
	if source.Bucket != "" {
		c.Bucket = source.Bucket
	}
	if source.EndpointURL != "" {
		c.EndpointURL = source.EndpointURL
	}
	if source.AccessKeyID != "" {
		c.AccessKeyID = source.AccessKeyID
	}
	if source.SecretAccessKey != "" {
		c.SecretAccessKey = source.SecretAccessKey
	}
	if source.Region != "" {
		c.Region = source.Region
	}
}

// Validate checks the parameters required by the selected backend type.
func (c *Config) Validate() error {
	kind, ok := typeAliases[c.Type]
	if !ok {
		return fmt.Errorf("%w: unknown type %q (must be %s or %s)", ErrConfiguration, c.Type, TypeLocal, TypeObjectStore)
	}

	switch kind {
	case TypeLocal:
		if c.BasePath == "" {
			return fmt.Errorf("%w: base_path is required for %s storage", ErrConfiguration, TypeLocal)
		}
	case TypeObjectStore:
		if c.Bucket == "" {
			return fmt.Errorf("%w: bucket is required for %s storage", ErrConfiguration, TypeObjectStore)
		}
		if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
			return fmt.Errorf("%w: access_key_id and secret_access_key must be set together", ErrConfiguration)
		}
	}
	return nil
}

// Kind returns the canonical backend type for c.Type, or "" when unknown.
func (c *Config) Kind() string {
	return typeAliases[c.Type]
}

// New validates cfg and constructs exactly one backend. Nothing is
// constructed when validation fails.
func New(ctx context.Context, cfg *Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind() {
	case TypeObjectStore:
		return NewObjectStore(ctx, cfg)
	default:
		return NewLocal(cfg.BasePath), nil
	}
}
