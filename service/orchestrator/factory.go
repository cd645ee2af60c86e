package orchestrator

import (
	"github.com/elC0mpa/aws-spot/internal/config"
	"github.com/elC0mpa/aws-spot/internal/metrics"
	"github.com/elC0mpa/aws-spot/service"
	"github.com/elC0mpa/aws-spot/service/spot"
	"github.com/rs/zerolog"
)

// NewProvisioner wires a spot provisioner for one node from the loaded configuration
func NewProvisioner(cfg *config.Config, provider service.SpotProvider, instances service.InstanceService, identity service.IdentityService, properties service.RuntimeProperties, logger zerolog.Logger, m *metrics.Spot) *spot.Provisioner {
	return spot.NewProvisioner(provider, instances, properties, logger,
		spot.WithIdentity(identity),
		spot.WithMetrics(m),
		spot.WithRetryPolicy(spot.RetryPolicy{
			Attempts: cfg.Retry.Attempts,
			Delay:    cfg.Retry.Delay,
		}),
		spot.WithCancellation(spot.CancelPolicy{
			Attempts: cfg.Cancellation.Attempts,
			Strict:   cfg.Cancellation.Strict,
		}),
		spot.WithNoiseFilter(noiseFilter(cfg)),
	)
}

func noiseFilter(cfg *config.Config) spot.NoiseFilter {
	return spot.NoiseFilter{
		MinOccurrences: cfg.Bidding.MinOccurrences,
		SkipLowest:     cfg.Bidding.SkipLowest,
	}
}
