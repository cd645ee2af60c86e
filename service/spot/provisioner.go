package spot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/elC0mpa/aws-spot/internal/metrics"
	"github.com/elC0mpa/aws-spot/model"
	"github.com/elC0mpa/aws-spot/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Runtime property keys written by the provisioner
const (
	PropertyRequestID        = "request_id"
	PropertyInstanceID       = "instance_id"
	PropertyResourceID       = "resource_id"
	PropertyRegion           = "region"
	PropertyAvailabilityZone = "availability_zone"
	PropertyBidPrice         = "bid_price"
	PropertyPrivateIP        = "ip"
	PropertyPublicIP         = "public_ip_address"
)

var recordedProperties = []string{
	PropertyRequestID,
	PropertyInstanceID,
	PropertyResourceID,
	PropertyRegion,
	PropertyAvailabilityZone,
	PropertyBidPrice,
	PropertyPrivateIP,
	PropertyPublicIP,
}

// Provisioner drives the spot instance lifecycle of one node
type Provisioner struct {
	provider   service.SpotProvider
	instances  service.InstanceService
	properties service.RuntimeProperties
	identity   service.IdentityService

	logger   zerolog.Logger
	metrics  *metrics.Spot
	retry    RetryPolicy
	cancel   CancelPolicy
	filter   NoiseFilter
	pollOpts []PollerOption
	sleep    sleepFunc
	now      func() time.Time
	newToken func() string

	retrier   *Retrier
	collector *Collector
	poller    *Poller
}

type Option func(*Provisioner)

func WithIdentity(identity service.IdentityService) Option {
	return func(p *Provisioner) {
		p.identity = identity
	}
}

func WithMetrics(m *metrics.Spot) Option {
	return func(p *Provisioner) {
		p.metrics = m
	}
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(p *Provisioner) {
		p.retry = policy
	}
}

func WithCancellation(policy CancelPolicy) Option {
	return func(p *Provisioner) {
		p.cancel = policy
	}
}

func WithNoiseFilter(filter NoiseFilter) Option {
	return func(p *Provisioner) {
		p.filter = filter
	}
}

// WithPollerOptions forwards options to the fulfillment poller
func WithPollerOptions(opts ...PollerOption) Option {
	return func(p *Provisioner) {
		p.pollOpts = append(p.pollOpts, opts...)
	}
}

func withSleep(sleep sleepFunc) Option {
	return func(p *Provisioner) {
		p.sleep = sleep
	}
}

func withClock(now func() time.Time) Option {
	return func(p *Provisioner) {
		p.now = now
	}
}

func withTokens(newToken func() string) Option {
	return func(p *Provisioner) {
		p.newToken = newToken
	}
}

func NewProvisioner(provider service.SpotProvider, instances service.InstanceService, properties service.RuntimeProperties, logger zerolog.Logger, opts ...Option) *Provisioner {
	p := &Provisioner{
		provider:   provider,
		instances:  instances,
		properties: properties,
		logger:     logger,
		retry:      DefaultRetryPolicy(),
		cancel:     CancelPolicy{Attempts: 1},
		sleep:      sleepContext,
		now:        time.Now,
		newToken:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.retrier = NewRetrier(p.retry, logger)
	p.retrier.sleep = p.sleep

	p.collector = NewCollector(provider, p.retrier, logger)
	p.collector.now = p.now

	pollOpts := append([]PollerOption{
		WithCancelPolicy(p.cancel),
		WithPollerMetrics(p.metrics),
		withPollerSleep(p.sleep),
	}, p.pollOpts...)
	p.poller = NewPoller(provider, p.retrier, logger, pollOpts...)

	return p
}

// bidContext is the request scoped state of one Create call
type bidContext struct {
	params  model.InstanceParams
	launch  model.SpotLaunch
	policy  BidPolicy
	history *PriceHistory
}

// Create bids for a spot instance until one is fulfilled and records it in the runtime properties
func (p *Provisioner) Create(ctx context.Context, params model.InstanceParams) (*model.SpotRequestInfo, error) {
	bc, err := p.prepare(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("creation failed: %w", err)
	}

	price, err := InitialPrice(bc.history, bc.policy)
	if err != nil {
		return nil, fmt.Errorf("creation failed: %w", err)
	}

	attempt := 1
	for ; bc.policy.Allows(price, attempt); attempt++ {
		launch := bc.launch
		launch.Price = price
		launch.ClientToken = p.newToken()

		p.logger.Info().
			Int("attempt", attempt).
			Str("price", price.String()).
			Str("max_price", bc.policy.MaxPrice.String()).
			Str("instance_type", params.InstanceType).
			Msg("Bidding for spot instance")

		request, err := p.poller.SubmitAndPoll(ctx, launch)
		if err != nil {
			p.metrics.ObserveBid(metrics.OutcomeFatal)
			return nil, fmt.Errorf("creation failed: %w", err)
		}

		if request != nil {
			p.metrics.ObserveBid(metrics.OutcomeFulfilled)
			info := &model.SpotRequestInfo{
				InstanceID:       request.InstanceID,
				RequestID:        request.RequestID,
				Region:           request.Region,
				AvailabilityZone: request.AvailabilityZone,
				BidPrice:         request.BidPrice,
			}
			if err := p.record(ctx, info); err != nil {
				return info, fmt.Errorf("creation failed: recording spot instance %s: %w", info.InstanceID, err)
			}
			return info, nil
		}

		p.metrics.ObserveBid(metrics.OutcomeFailed)
		price = NextPrice(price, bc.policy)
	}

	return nil, fmt.Errorf("creation failed: %w", nonRecoverable("create spot instance",
		fmt.Errorf("%w after %d attempts, next price %s, max price %s", ErrBidsExhausted, attempt-1, price, bc.policy.MaxPrice)))
}

func (p *Provisioner) prepare(ctx context.Context, params model.InstanceParams) (*bidContext, error) {
	if err := validateParams(params); err != nil {
		return nil, nonRecoverable("validate instance parameters", err)
	}

	policy := NewBidPolicy(params.StartingPrice, params.MaxPrice, p.filter)
	if err := policy.Validate(); err != nil {
		return nil, nonRecoverable("validate bid policy", err)
	}

	groups, err := p.securityGroupNames(ctx, params.SecurityGroupIDs)
	if err != nil {
		return nil, err
	}

	bc := &bidContext{
		params: params,
		policy: policy,
		launch: model.SpotLaunch{
			InstanceType:       params.InstanceType,
			ImageID:            params.ImageID,
			AvailabilityZone:   params.AvailabilityZone,
			KeyName:            params.KeyName,
			SecurityGroupNames: groups,
			UserData:           params.UserData,
		},
	}

	if policy.HasStartingPrice() {
		p.logger.Debug().Str("starting_price", policy.StartingPrice.String()).Msg("Starting price supplied, skipping pricing history")
		return bc, nil
	}

	bc.history, err = p.collector.Collect(ctx, params.InstanceType, params.AvailabilityZone)
	if err != nil {
		return nil, err
	}

	if policy.Filter.Enabled() && bc.history.Filter(policy.Filter.MinOccurrences, policy.Filter.SkipLowest).Len() == 0 {
		p.logger.Warn().
			Int("min_occurrences", policy.Filter.MinOccurrences).
			Int("skip_lowest", policy.Filter.SkipLowest).
			Msg("Noise filter discarded every price, using the full history")
	}

	return bc, nil
}

func (p *Provisioner) securityGroupNames(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	return ExecuteWithRetry(ctx, p.retrier, "get_all_security_groups",
		func(ctx context.Context) ([]string, error) {
			return p.provider.GetSecurityGroups(ctx, ids)
		},
		func(names []string) bool { return len(names) == 0 },
	)
}

func (p *Provisioner) record(ctx context.Context, info *model.SpotRequestInfo) error {
	values := map[string]string{
		PropertyRequestID:        info.RequestID,
		PropertyInstanceID:       info.InstanceID,
		PropertyResourceID:       info.InstanceID,
		PropertyRegion:           info.Region,
		PropertyAvailabilityZone: info.AvailabilityZone,
		PropertyBidPrice:         info.BidPrice.String(),
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := p.properties.Set(ctx, key, values[key]); err != nil {
			return err
		}
	}

	return nil
}

// Stop cancels the spot request recorded at creation time
func (p *Provisioner) Stop(ctx context.Context) error {
	requestID, err := p.recorded(ctx, PropertyRequestID, ErrNoRequestRecorded)
	if err != nil {
		return err
	}

	cancelled, err := ExecuteWithRetry(ctx, p.retrier, "cancel_spot_instance_requests",
		func(ctx context.Context) ([]string, error) {
			return p.provider.CancelSpotInstanceRequests(ctx, []string{requestID})
		},
		nil,
	)
	if err != nil {
		return fmt.Errorf("stop failed: %w", err)
	}

	p.metrics.ObserveCancel(metrics.CancelSucceeded)
	p.logger.Info().Str("request_id", requestID).Strs("cancelled", cancelled).Msg("Spot request cancelled")
	return nil
}

// Start boots the recorded instance unless it already runs and records its addresses
func (p *Provisioner) Start(ctx context.Context) (*model.Instance, error) {
	instanceID, err := p.recorded(ctx, PropertyInstanceID, ErrNoInstanceRecorded)
	if err != nil {
		return nil, err
	}

	instance, err := p.instances.GetInstanceByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("start failed: %w", err)
	}

	if instance.State != "running" {
		if err := p.instances.StartInstance(ctx, instanceID); err != nil {
			return nil, fmt.Errorf("start failed: %w", err)
		}
		if instance, err = p.instances.GetInstanceByID(ctx, instanceID); err != nil {
			return nil, fmt.Errorf("start failed: %w", err)
		}
	}

	if instance.PrivateIPAddress != "" {
		if err := p.properties.Set(ctx, PropertyPrivateIP, instance.PrivateIPAddress); err != nil {
			return instance, err
		}
	}
	if instance.PublicIPAddress != "" {
		if err := p.properties.Set(ctx, PropertyPublicIP, instance.PublicIPAddress); err != nil {
			return instance, err
		}
	}

	p.logger.Info().Str("instance_id", instanceID).Str("state", instance.State).Msg("Instance started")
	return instance, nil
}

// Delete terminates the recorded instance, withdraws the request and clears the runtime properties
func (p *Provisioner) Delete(ctx context.Context) error {
	instanceID, err := p.recorded(ctx, PropertyInstanceID, ErrNoInstanceRecorded)
	switch {
	case err == nil:
		if err := p.instances.TerminateInstance(ctx, instanceID); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		p.logger.Info().Str("instance_id", instanceID).Msg("Instance terminated")
	case errors.Is(err, ErrNoInstanceRecorded):
		p.logger.Warn().Msg("No instance recorded, nothing to terminate")
	default:
		return err
	}

	if requestID, err := p.recorded(ctx, PropertyRequestID, ErrNoRequestRecorded); err == nil {
		if err := p.poller.Cancel(ctx, requestID); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
	}

	for _, key := range recordedProperties {
		if err := p.properties.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete failed: clearing %s: %w", key, err)
		}
	}

	return nil
}

// ModifyAttributes applies instance attribute changes to the recorded instance
func (p *Provisioner) ModifyAttributes(ctx context.Context, attributes map[string]string) error {
	instanceID, err := p.recorded(ctx, PropertyInstanceID, ErrNoInstanceRecorded)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(attributes))
	for name := range attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := p.instances.ModifyInstanceAttribute(ctx, instanceID, name, attributes[name]); err != nil {
			return fmt.Errorf("modify attributes failed: %w", err)
		}
		p.logger.Info().Str("instance_id", instanceID).Str("attribute", name).Msg("Instance attribute modified")
	}

	return nil
}

// CreationValidation checks params and, when an identity service is wired, the credentials
func (p *Provisioner) CreationValidation(ctx context.Context, params model.InstanceParams) error {
	if err := validateParams(params); err != nil {
		return nonRecoverable("validate instance parameters", err)
	}

	if p.identity != nil {
		account, err := p.identity.GetAccountInfo(ctx)
		if err != nil {
			return nonRecoverable("validate credentials", err)
		}
		p.logger.Debug().Str("account_id", account.AccountID).Msg("Credentials validated")
	}

	return nil
}

// History collects the current pricing history without bidding
func (p *Provisioner) History(ctx context.Context, instanceType, availabilityZone string) (*PriceHistory, error) {
	return p.collector.Collect(ctx, instanceType, availabilityZone)
}

func (p *Provisioner) recorded(ctx context.Context, key string, missing error) (string, error) {
	value, err := p.properties.Get(ctx, key)
	if errors.Is(err, service.ErrPropertyNotFound) || (err == nil && value == "") {
		return "", nonRecoverable("read runtime property "+key, missing)
	}
	if err != nil {
		return "", fmt.Errorf("read runtime property %s: %w", key, err)
	}
	return value, nil
}

func validateParams(params model.InstanceParams) error {
	if params.InstanceType == "" {
		return errors.New("instance type is required")
	}
	if params.ImageID == "" {
		return errors.New("image id is required")
	}
	if !params.MaxPrice.IsPositive() {
		return fmt.Errorf("max price must be positive, got %s", params.MaxPrice)
	}
	if params.StartingPrice != nil {
		if params.StartingPrice.IsNegative() {
			return fmt.Errorf("starting price must not be negative, got %s", params.StartingPrice)
		}
		if params.StartingPrice.GreaterThan(params.MaxPrice) {
			return fmt.Errorf("starting price %s exceeds max price %s", params.StartingPrice, params.MaxPrice)
		}
	}
	return nil
}

// ParsePrice parses an optional decimal price, the empty string meaning unset
func ParsePrice(value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	price, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", value, err)
	}
	return &price, nil
}
