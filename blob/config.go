package blob

import (
	"errors"
	"fmt"
)

// Provider constants for supported storage backends.
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// Compression modes for the local provider.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// Config holds blob storage configuration.
type Config struct {
	// Provider selects the storage backend: "local" or "s3".
	Provider string `yaml:"provider" mapstructure:"provider"`

	// Path is the blob directory for the local provider.
	Path string `yaml:"path" mapstructure:"path"`

	// Compression selects at-rest compression for the local provider:
	// "none" or "zstd".
	Compression string `yaml:"compression" mapstructure:"compression"`

	// Endpoint is the S3-compatible endpoint (host:port).
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`

	// Bucket is the object store bucket name.
	Bucket string `yaml:"bucket" mapstructure:"bucket"`

	// AccessKey is the object store access key.
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`

	// SecretKey is the object store secret key.
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`

	// UseSSL enables TLS for the S3 endpoint.
	UseSSL bool `yaml:"use_ssl" mapstructure:"use_ssl"`

	// Prefix is prepended to object keys in the bucket.
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderLocal
	}
	if c.Path == "" {
		c.Path = "./data/uploads"
	}
	if c.Compression == "" {
		c.Compression = CompressionNone
	}
}

// Validate checks that the configuration is valid for the selected provider.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderLocal:
		if c.Path == "" {
			return errors.New("blob: path is required for local provider")
		}
		if c.Compression != CompressionNone && c.Compression != CompressionZstd {
			return fmt.Errorf("blob: unsupported compression %q", c.Compression)
		}
	case ProviderS3:
		var errs []error
		if c.Endpoint == "" {
			errs = append(errs, errors.New("blob: endpoint is required for s3 provider"))
		}
		if c.Bucket == "" {
			errs = append(errs, errors.New("blob: bucket is required for s3 provider"))
		}
		if len(errs) > 0 {
			return fmt.Errorf("blob: invalid s3 config: %w", errors.Join(errs...))
		}
	default:
		return fmt.Errorf("blob: unsupported provider %q", c.Provider)
	}
	return nil
}
