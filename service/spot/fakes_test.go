package spot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/elC0mpa/aws-spot/model"
	"github.com/elC0mpa/aws-spot/service"
	"github.com/shopspring/decimal"
)

func price(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func pricePtr(value string) *decimal.Decimal {
	p := price(value)
	return &p
}

func samplesOf(values ...string) []model.PriceSample {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	samples := make([]model.PriceSample, 0, len(values))
	for i, v := range values {
		samples = append(samples, model.PriceSample{
			Price:            price(v),
			Timestamp:        ts.Add(time.Duration(i) * time.Minute),
			InstanceType:     "m5.large",
			AvailabilityZone: "us-east-1a",
		})
	}
	return samples
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// pollStep is one scripted answer to a describe call
type pollStep struct {
	code       model.StatusCode
	instanceID string
	missing    bool
	err        error
}

func pending() pollStep { return pollStep{code: model.StatusPendingEvaluation} }

func status(code model.StatusCode) pollStep { return pollStep{code: code} }

func fulfilled(instanceID string) pollStep {
	return pollStep{code: model.StatusFulfilled, instanceID: instanceID}
}

type fakeProvider struct {
	samples      []model.PriceSample
	historyErr   error
	historyCalls int
	windowStart  time.Time
	windowEnd    time.Time

	groupNames map[string]string

	// scripts[n] drives the n-th submitted request, defaultScript the rest.
	// The last step of a script repeats once it is used up.
	scripts       [][]pollStep
	defaultScript []pollStep
	submitErr     error
	submitCalls   int
	launches      []model.SpotLaunch
	requestScript map[string][]pollStep
	polls         map[string]int

	cancelErrs   int
	cancelCalls  int
	cancelled    []string
	cancelCtxErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		requestScript: make(map[string][]pollStep),
		polls:         make(map[string]int),
	}
}

func (f *fakeProvider) GetSpotPriceHistory(_ context.Context, start, end time.Time, _, _ string) ([]model.PriceSample, error) {
	f.historyCalls++
	f.windowStart = start
	f.windowEnd = end
	return f.samples, f.historyErr
}

func (f *fakeProvider) GetSecurityGroups(_ context.Context, groupIDs []string) ([]string, error) {
	names := make([]string, 0, len(groupIDs))
	for _, id := range groupIDs {
		name, ok := f.groupNames[id]
		if !ok {
			return nil, fmt.Errorf("unknown security group %s", id)
		}
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeProvider) RequestSpotInstances(_ context.Context, launch model.SpotLaunch) ([]model.SpotRequest, error) {
	f.submitCalls++
	if f.submitErr != nil {
		return nil, f.submitErr
	}

	f.launches = append(f.launches, launch)
	id := fmt.Sprintf("sir-%d", len(f.launches))

	script := f.defaultScript
	if n := len(f.launches) - 1; n < len(f.scripts) {
		script = f.scripts[n]
	}
	f.requestScript[id] = script

	return []model.SpotRequest{{
		RequestID:  id,
		StatusCode: model.StatusPendingEvaluation,
		State:      "open",
	}}, nil
}

func (f *fakeProvider) GetSpotInstanceRequests(_ context.Context, requestIDs []string) ([]model.SpotRequest, error) {
	id := requestIDs[0]
	script := f.requestScript[id]

	n := f.polls[id]
	f.polls[id]++

	step := pending()
	switch {
	case len(script) == 0:
	case n < len(script):
		step = script[n]
	default:
		step = script[len(script)-1]
	}

	if step.err != nil {
		return nil, step.err
	}
	if step.missing {
		return nil, nil
	}

	return []model.SpotRequest{{
		RequestID:        id,
		StatusCode:       step.code,
		State:            "open",
		InstanceID:       step.instanceID,
		Region:           "us-east-1",
		AvailabilityZone: "us-east-1a",
	}}, nil
}

func (f *fakeProvider) CancelSpotInstanceRequests(ctx context.Context, requestIDs []string) ([]string, error) {
	f.cancelCalls++
	f.cancelCtxErr = ctx.Err()
	if f.cancelCalls <= f.cancelErrs {
		return nil, errors.New("RequestLimitExceeded")
	}
	f.cancelled = append(f.cancelled, requestIDs...)
	return requestIDs, nil
}

func (f *fakeProvider) launchPrices() []string {
	prices := make([]string, 0, len(f.launches))
	for _, launch := range f.launches {
		prices = append(prices, launch.Price.String())
	}
	return prices
}

type fakeInstances struct {
	instances  map[string]*model.Instance
	started    []string
	terminated []string
	modified   []string
	err        error
}

func newFakeInstances() *fakeInstances {
	return &fakeInstances{instances: make(map[string]*model.Instance)}
}

func (f *fakeInstances) GetInstanceByID(_ context.Context, instanceID string) (*model.Instance, error) {
	instance, ok := f.instances[instanceID]
	if !ok {
		return nil, fmt.Errorf("instance %s not found", instanceID)
	}
	copied := *instance
	return &copied, nil
}

func (f *fakeInstances) StartInstance(_ context.Context, instanceID string) error {
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, instanceID)
	if instance, ok := f.instances[instanceID]; ok {
		instance.State = "running"
		instance.PublicIPAddress = "203.0.113.10"
	}
	return nil
}

func (f *fakeInstances) StopInstance(_ context.Context, _ string) error {
	return f.err
}

func (f *fakeInstances) TerminateInstance(_ context.Context, instanceID string) error {
	if f.err != nil {
		return f.err
	}
	f.terminated = append(f.terminated, instanceID)
	return nil
}

func (f *fakeInstances) ModifyInstanceAttribute(_ context.Context, instanceID, attribute, value string) error {
	if f.err != nil {
		return f.err
	}
	f.modified = append(f.modified, attribute+"="+value)
	return nil
}

type fakeProperties map[string]string

func (f fakeProperties) Get(_ context.Context, key string) (string, error) {
	value, ok := f[key]
	if !ok {
		return "", service.ErrPropertyNotFound
	}
	return value, nil
}

func (f fakeProperties) Set(_ context.Context, key, value string) error {
	f[key] = value
	return nil
}

func (f fakeProperties) Delete(_ context.Context, key string) error {
	delete(f, key)
	return nil
}

func (f fakeProperties) All(_ context.Context) (map[string]string, error) {
	all := make(map[string]string, len(f))
	for k, v := range f {
		all[k] = v
	}
	return all, nil
}

func (f fakeProperties) keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type fakeIdentity struct {
	err error
}

func (f fakeIdentity) GetAccountInfo(_ context.Context) (*model.AccountInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.AccountInfo{Provider: "aws", AccountID: "123456789012"}, nil
}
