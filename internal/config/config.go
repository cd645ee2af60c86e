// Package config provides configuration management for aws-spot.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/elC0mpa/aws-spot/model"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the complete aws-spot configuration.
type Config struct {
	AWS          AWSConfig          `yaml:"aws"`
	Instance     InstanceConfig     `yaml:"instance"`
	Bidding      BiddingConfig      `yaml:"bidding"`
	Cancellation CancellationConfig `yaml:"cancellation"`
	Retry        RetryConfig        `yaml:"retry"`
	Store        StoreConfig        `yaml:"store"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// AWSConfig contains the SDK settings.
type AWSConfig struct {
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`
	// ProductDescription restricts the price history, e.g. "Linux/UNIX"
	ProductDescription string `yaml:"product_description"`
	// MaxAttempts is the SDK level retry budget, zero keeps the SDK default
	MaxAttempts int `yaml:"max_attempts"`
}

// InstanceConfig describes the spot instance to provision.
type InstanceConfig struct {
	InstanceType     string   `yaml:"instance_type"`
	ImageID          string   `yaml:"image_id"`
	AvailabilityZone string   `yaml:"availability_zone"`
	KeyName          string   `yaml:"key_name"`
	SecurityGroupIDs []string `yaml:"security_group_ids"`
	UserData         string   `yaml:"user_data"`
	// Prices are decimal strings so no precision is lost to floats
	StartingPrice string `yaml:"starting_price"`
	MaxPrice      string `yaml:"max_price"`
}

// BiddingConfig contains the noise filter applied to the price history.
type BiddingConfig struct {
	MinOccurrences int `yaml:"min_occurrences"`
	SkipLowest     int `yaml:"skip_lowest"`
}

// CancellationConfig controls spot request cancellation on abort paths.
type CancellationConfig struct {
	Attempts int  `yaml:"attempts"`
	Strict   bool `yaml:"strict"`
}

// RetryConfig bounds provider calls.
type RetryConfig struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

// StoreConfig selects the runtime property store.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig contains metrics settings. An empty address disables the endpoint.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		AWS: AWSConfig{
			ProductDescription: "Linux/UNIX",
		},
		Cancellation: CancellationConfig{
			Attempts: 1,
		},
		Retry: RetryConfig{
			Attempts: 3,
			Delay:    time.Second,
		},
		Store: StoreConfig{
			Driver: StoreSQLite,
			Path:   "aws-spot.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a file. An empty path yields the defaults, both
// being subject to environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables
		data = []byte(os.ExpandEnv(string(data)))

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.AWS.Region = v
	}
	if v := os.Getenv("AWS_PROFILE"); v != "" {
		c.AWS.Profile = v
	}
	if v := os.Getenv("SPOT_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("SPOT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SPOT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("SPOT_METRICS_ADDR"); v != "" {
		c.Metrics.Address = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", StoreSQLite, StoreMemory, c.Store.Driver)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}

	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1")
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay must not be negative")
	}
	if c.Cancellation.Attempts < 1 {
		return fmt.Errorf("cancellation.attempts must be at least 1")
	}
	if c.Bidding.MinOccurrences < 0 || c.Bidding.SkipLowest < 0 {
		return fmt.Errorf("bidding filter values must not be negative")
	}

	for name, value := range map[string]string{
		"instance.starting_price": c.Instance.StartingPrice,
		"instance.max_price":      c.Instance.MaxPrice,
	} {
		if value == "" {
			continue
		}
		if _, err := decimal.NewFromString(value); err != nil {
			return fmt.Errorf("%s is not a decimal: %q", name, value)
		}
	}

	return nil
}

// InstanceParams converts the instance section into creation parameters.
func (c *Config) InstanceParams() (model.InstanceParams, error) {
	params := model.InstanceParams{
		InstanceType:     c.Instance.InstanceType,
		ImageID:          c.Instance.ImageID,
		AvailabilityZone: c.Instance.AvailabilityZone,
		KeyName:          c.Instance.KeyName,
		SecurityGroupIDs: c.Instance.SecurityGroupIDs,
		UserData:         c.Instance.UserData,
	}

	if c.Instance.MaxPrice == "" {
		return params, fmt.Errorf("instance.max_price is required")
	}
	maxPrice, err := decimal.NewFromString(c.Instance.MaxPrice)
	if err != nil {
		return params, fmt.Errorf("instance.max_price: %w", err)
	}
	params.MaxPrice = maxPrice

	if c.Instance.StartingPrice != "" {
		starting, err := decimal.NewFromString(c.Instance.StartingPrice)
		if err != nil {
			return params, fmt.Errorf("instance.starting_price: %w", err)
		}
		params.StartingPrice = &starting
	}

	return params, nil
}
