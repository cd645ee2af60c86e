package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv neutralises overrides inherited from the developer's shell
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"AWS_REGION", "AWS_PROFILE", "SPOT_STORE_PATH", "SPOT_LOG_LEVEL", "SPOT_LOG_FORMAT", "SPOT_METRICS_ADDR"} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aws-spot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, time.Second, cfg.Retry.Delay)
	assert.Equal(t, 1, cfg.Cancellation.Attempts)
	assert.False(t, cfg.Cancellation.Strict)
	assert.Zero(t, cfg.Bidding.MinOccurrences)
	assert.Equal(t, "Linux/UNIX", cfg.AWS.ProductDescription)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
aws:
  region: eu-west-1
instance:
  instance_type: c5.large
  image_id: ami-0abcdef
  availability_zone: eu-west-1b
  security_group_ids: [sg-1, sg-2]
  starting_price: "0.045"
  max_price: "0.2"
bidding:
  min_occurrences: 2
cancellation:
  attempts: 3
  strict: true
retry:
  attempts: 5
  delay: 250ms
store:
  driver: memory
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "Linux/UNIX", cfg.AWS.ProductDescription, "defaults survive partial files")
	assert.Equal(t, []string{"sg-1", "sg-2"}, cfg.Instance.SecurityGroupIDs)
	assert.Equal(t, 2, cfg.Bidding.MinOccurrences)
	assert.Equal(t, CancellationConfig{Attempts: 3, Strict: true}, cfg.Cancellation)
	assert.Equal(t, RetryConfig{Attempts: 5, Delay: 250 * time.Millisecond}, cfg.Retry)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, "json", cfg.Logging.Format)

	params, err := cfg.InstanceParams()
	require.NoError(t, err)
	assert.Equal(t, "c5.large", params.InstanceType)
	require.NotNil(t, params.StartingPrice)
	assert.Equal(t, "0.045", params.StartingPrice.String())
	assert.Equal(t, "0.2", params.MaxPrice.String())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
aws:
  region: eu-west-1
  profile: file-profile
store:
  path: /var/lib/from-file.db
logging:
  level: info
`)

	t.Setenv("AWS_REGION", "us-west-2")
	t.Setenv("AWS_PROFILE", "env-profile")
	t.Setenv("SPOT_STORE_PATH", "/tmp/from-env.db")
	t.Setenv("SPOT_LOG_LEVEL", "warn")
	t.Setenv("SPOT_LOG_FORMAT", "json")
	t.Setenv("SPOT_METRICS_ADDR", ":9102")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "us-west-2", cfg.AWS.Region)
	assert.Equal(t, "env-profile", cfg.AWS.Profile)
	assert.Equal(t, "/tmp/from-env.db", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, ":9102", cfg.Metrics.Address)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("SPOT_TEST_AMI", "ami-from-env")
	path := writeConfig(t, "instance:\n  image_id: ${SPOT_TEST_AMI}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ami-from-env", cfg.Instance.ImageID)
}

func TestLoad_WithoutFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Retry, cfg.Retry)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "retry: [not, a, map]\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "instance:\n  max_price: cheap\n"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "valid default config", modify: func(c *Config) {}},
		{name: "memory store needs no path", modify: func(c *Config) { c.Store = StoreConfig{Driver: StoreMemory} }},
		{name: "unknown store driver", modify: func(c *Config) { c.Store.Driver = "redis" }, wantErr: true},
		{name: "sqlite without path", modify: func(c *Config) { c.Store.Path = "" }, wantErr: true},
		{name: "unknown log format", modify: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{name: "no retry attempts", modify: func(c *Config) { c.Retry.Attempts = 0 }, wantErr: true},
		{name: "negative retry delay", modify: func(c *Config) { c.Retry.Delay = -time.Second }, wantErr: true},
		{name: "no cancel attempts", modify: func(c *Config) { c.Cancellation.Attempts = 0 }, wantErr: true},
		{name: "negative filter", modify: func(c *Config) { c.Bidding.SkipLowest = -1 }, wantErr: true},
		{name: "malformed starting price", modify: func(c *Config) { c.Instance.StartingPrice = "1,5" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_InstanceParamsRequiresMaxPrice(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Instance.InstanceType = "m5.large"

	_, err := cfg.InstanceParams()
	assert.Error(t, err)

	cfg.Instance.MaxPrice = "0.5"
	params, err := cfg.InstanceParams()
	require.NoError(t, err)
	assert.Nil(t, params.StartingPrice)
}
