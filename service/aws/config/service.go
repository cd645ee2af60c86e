package awsconfig

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// NewService returns a config loader. maxAttempts bounds the SDK level retryer, zero keeps the SDK default.
func NewService(maxAttempts int) *service {
	return &service{
		maxAttempts: maxAttempts,
	}
}

func (s *service) GetAWSCfg(ctx context.Context, region, profile string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	if s.maxAttempts > 0 {
		opts = append(opts, config.WithRetryMaxAttempts(s.maxAttempts))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading aws config for region %q: %w", region, err)
	}

	return cfg, nil
}
