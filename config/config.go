// Package config loads and validates the service configuration from a YAML
// file, a .env file, and environment variables, in increasing precedence.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/cartercloud/cartercloud/auth"
	"github.com/cartercloud/cartercloud/blob"
	"github.com/cartercloud/cartercloud/logger"
	"github.com/cartercloud/cartercloud/observability"
	"github.com/cartercloud/cartercloud/server"
	"github.com/cartercloud/cartercloud/vault"
)

// StoreConfig locates the persisted metadata document.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ApplyDefaults fills in the default document location.
func (c *StoreConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "./data/data.json"
	}
}

// Config is the full service configuration.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`

	Server    server.Config        `yaml:"server" mapstructure:"server"`
	Logging   logger.Config        `yaml:"logging" mapstructure:"logging"`
	Store     StoreConfig          `yaml:"store" mapstructure:"store"`
	Blob      blob.Config          `yaml:"blob" mapstructure:"blob"`
	Fetch     vault.Config         `yaml:"fetch" mapstructure:"fetch"`
	Auth      auth.Config          `yaml:"auth" mapstructure:"auth"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

var validate = validator.New()

// ApplyDefaults fills every section's defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "cartercloud"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	c.Server.ApplyDefaults()
	c.Logging.ApplyDefaults()
	c.Store.ApplyDefaults()
	c.Blob.ApplyDefaults()
	c.Fetch.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// Validate checks the whole configuration. Call ApplyDefaults first.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Blob.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Telemetry.Validate()
}

// Load resolves configuration files, merges the environment on top, applies
// defaults, and validates.
func Load(opts ...LoaderOption) (*Config, error) {
	var cfg Config
	if err := LoadConfig("cartercloud", &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
