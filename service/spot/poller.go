package spot

import (
	"context"
	"fmt"
	"time"

	"github.com/elC0mpa/aws-spot/internal/metrics"
	"github.com/elC0mpa/aws-spot/model"
	"github.com/elC0mpa/aws-spot/service"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

const (
	DefaultPollIterations = 20
	DefaultPollInterval   = 2 * time.Second
)

// CancelPolicy controls request cancellation on abort paths
type CancelPolicy struct {
	// Attempts is the number of cancel calls tried, at least one
	Attempts int
	// Strict surfaces a cancellation that never succeeded as an error
	Strict bool
}

// Poller submits one priced spot request and waits for a terminal status
type Poller struct {
	provider   service.SpotProvider
	retrier    *Retrier
	logger     zerolog.Logger
	metrics    *metrics.Spot
	cancel     CancelPolicy
	iterations int
	interval   time.Duration
	sleep      sleepFunc
}

type PollerOption func(*Poller)

func WithPollSchedule(iterations int, interval time.Duration) PollerOption {
	return func(p *Poller) {
		p.iterations = iterations
		p.interval = interval
	}
}

func WithCancelPolicy(policy CancelPolicy) PollerOption {
	return func(p *Poller) {
		p.cancel = policy
	}
}

func WithPollerMetrics(m *metrics.Spot) PollerOption {
	return func(p *Poller) {
		p.metrics = m
	}
}

func withPollerSleep(sleep sleepFunc) PollerOption {
	return func(p *Poller) {
		p.sleep = sleep
	}
}

func NewPoller(provider service.SpotProvider, retrier *Retrier, logger zerolog.Logger, opts ...PollerOption) *Poller {
	p := &Poller{
		provider:   provider,
		retrier:    retrier,
		logger:     logger,
		cancel:     CancelPolicy{Attempts: 1},
		iterations: DefaultPollIterations,
		interval:   DefaultPollInterval,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cancel.Attempts < 1 {
		p.cancel.Attempts = 1
	}
	return p
}

// SubmitAndPoll places launch on the market and polls it. A nil request with a nil
// error means this price failed and the request was cancelled; the caller may try
// another price. Fatal statuses come back as a NonRecoverableError.
func (p *Poller) SubmitAndPoll(ctx context.Context, launch model.SpotLaunch) (*model.SpotRequest, error) {
	requests, err := ExecuteWithRetry(ctx, p.retrier, "request_spot_instances",
		func(ctx context.Context) ([]model.SpotRequest, error) {
			return p.provider.RequestSpotInstances(ctx, launch)
		},
		func(requests []model.SpotRequest) bool { return len(requests) == 0 || requests[0].RequestID == "" },
	)
	if err != nil {
		return nil, err
	}

	request := requests[0]
	if request.BidPrice.IsZero() {
		request.BidPrice = launch.Price
	}

	logger := p.logger.With().
		Str("request_id", request.RequestID).
		Str("price", launch.Price.String()).
		Logger()
	logger.Info().Msg("Spot request submitted")

	for i := 0; i < p.iterations; i++ {
		if i > 0 {
			if err := p.sleep(ctx, p.interval); err != nil {
				abort := nonRecoverable("wait for spot request "+request.RequestID, err)
				return nil, multierr.Append(abort, p.Cancel(ctx, request.RequestID))
			}
		}

		p.metrics.ObservePoll()

		current, found, err := p.describe(ctx, request.RequestID)
		if err != nil {
			logger.Warn().Err(err).Int("iteration", i+1).Msg("Could not poll spot request")
			continue
		}
		if !found {
			logger.Debug().Int("iteration", i+1).Msg("Spot request not listed yet")
			continue
		}

		bid := request.BidPrice
		request = current
		if request.BidPrice.IsZero() {
			request.BidPrice = bid
		}

		outcome := Classify(request)
		if _, known := ClassifyStatus(request.StatusCode); !known {
			logger.Warn().Str("status", string(request.StatusCode)).Msg("Unknown spot request status, still waiting")
		}

		logger.Debug().
			Int("iteration", i+1).
			Str("status", string(request.StatusCode)).
			Stringer("outcome", outcome).
			Msg("Polled spot request")

		switch outcome {
		case OutcomeSuccess:
			logger.Info().
				Str("instance_id", request.InstanceID).
				Str("availability_zone", request.AvailabilityZone).
				Msg("Spot request fulfilled")
			return &request, nil

		case OutcomeFailure:
			logger.Info().Str("status", string(request.StatusCode)).Msg("Spot request failed at this price")
			return nil, p.Cancel(ctx, request.RequestID)

		case OutcomeFatal:
			fatal := nonRecoverable("spot request "+request.RequestID,
				fmt.Errorf("%w: %s %s", ErrFatalStatus, request.StatusCode, request.StatusMessage))
			return nil, multierr.Append(fatal, p.Cancel(ctx, request.RequestID))
		}
	}

	logger.Info().Int("iterations", p.iterations).Msg("Spot request not fulfilled in time")
	return nil, p.Cancel(ctx, request.RequestID)
}

func (p *Poller) describe(ctx context.Context, requestID string) (model.SpotRequest, bool, error) {
	requests, err := p.provider.GetSpotInstanceRequests(ctx, []string{requestID})
	if err != nil {
		return model.SpotRequest{}, false, err
	}

	for _, request := range requests {
		if request.RequestID == requestID {
			return request, true, nil
		}
	}

	return model.SpotRequest{}, false, nil
}

// Cancel withdraws requestID, also after ctx is done. Failures are logged and only
// returned under a strict CancelPolicy.
func (p *Poller) Cancel(ctx context.Context, requestID string) error {
	ctx = context.WithoutCancel(ctx)

	var err error
	for attempt := 1; attempt <= p.cancel.Attempts; attempt++ {
		if attempt > 1 {
			_ = p.sleep(ctx, p.retrier.policy.Delay)
		}

		_, err = p.provider.CancelSpotInstanceRequests(ctx, []string{requestID})
		if err == nil {
			p.metrics.ObserveCancel(metrics.CancelSucceeded)
			p.logger.Info().Str("request_id", requestID).Msg("Spot request cancelled")
			return nil
		}

		p.logger.Warn().
			Err(err).
			Str("request_id", requestID).
			Int("attempt", attempt).
			Msg("Could not cancel spot request")
	}

	p.metrics.ObserveCancel(metrics.CancelFailed)
	p.logger.Error().Err(err).Str("request_id", requestID).Msg("Giving up on spot request cancellation")

	if p.cancel.Strict {
		return fmt.Errorf("cancel spot request %s: %w", requestID, err)
	}
	return nil
}
