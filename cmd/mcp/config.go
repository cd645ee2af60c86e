package main

import (
	"os"

	spotconfig "github.com/elC0mpa/aws-spot/internal/config"
)

// Config holds environment-based configuration for the MCP server
type Config struct {
	// ConfigPath is the aws-spot YAML configuration, empty uses the defaults
	ConfigPath string

	// DefaultNode is used when a tool call names no node
	DefaultNode string

	// MetricsAddress serves prometheus metrics when set
	MetricsAddress string
}

// LoadConfig reads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		ConfigPath:     os.Getenv("SPOT_CONFIG"),
		DefaultNode:    getEnvOrDefault("SPOT_NODE", "default"),
		MetricsAddress: os.Getenv("SPOT_METRICS_ADDR"),
	}
}

// Spot loads the provisioning configuration the tools run with
func (c *Config) Spot() (*spotconfig.Config, error) {
	return spotconfig.Load(c.ConfigPath)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
