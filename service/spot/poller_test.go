package spot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/elC0mpa/aws-spot/internal/metrics"
	"github.com/elC0mpa/aws-spot/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPoller(provider *fakeProvider, opts ...PollerOption) *Poller {
	retrier := NewRetrier(RetryPolicy{Attempts: 3, Delay: time.Second}, zerolog.Nop())
	retrier.sleep = noSleep

	opts = append([]PollerOption{withPollerSleep(noSleep)}, opts...)
	return NewPoller(provider, retrier, zerolog.Nop(), opts...)
}

func testLaunch(p string) model.SpotLaunch {
	return model.SpotLaunch{
		Price:        price(p),
		InstanceType: "m5.large",
		ImageID:      "ami-0abcdef",
		ClientToken:  "token-1",
	}
}

func TestSubmitAndPoll_Fulfilled(t *testing.T) {
	provider := newFakeProvider()
	provider.scripts = [][]pollStep{{
		status(model.StatusPendingEvaluation),
		status(model.StatusPendingFulfillment),
		fulfilled("i-0abc"),
	}}

	m := metrics.NewSpot(prometheus.NewRegistry())
	request, err := newTestPoller(provider, WithPollerMetrics(m)).SubmitAndPoll(context.Background(), testLaunch("0.02"))

	require.NoError(t, err)
	require.NotNil(t, request)
	assert.Equal(t, "sir-1", request.RequestID)
	assert.Equal(t, "i-0abc", request.InstanceID)
	assert.Equal(t, "us-east-1a", request.AvailabilityZone)
	assert.True(t, request.BidPrice.Equal(price("0.02")))

	assert.Equal(t, 3, provider.polls["sir-1"])
	assert.Empty(t, provider.cancelled)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.PollIterations))
	assert.Equal(t, "token-1", provider.launches[0].ClientToken)
}

func TestSubmitAndPoll_FailureCancelsAndYieldsNoResult(t *testing.T) {
	for _, code := range []model.StatusCode{
		model.StatusPriceTooLow,
		model.StatusCancelledBeforeFulfillment,
		model.StatusSystemError,
		model.StatusInstanceTerminatedNoCapacity,
	} {
		t.Run(string(code), func(t *testing.T) {
			provider := newFakeProvider()
			provider.scripts = [][]pollStep{{pending(), status(code)}}

			request, err := newTestPoller(provider).SubmitAndPoll(context.Background(), testLaunch("0.02"))

			require.NoError(t, err)
			assert.Nil(t, request)
			assert.Equal(t, []string{"sir-1"}, provider.cancelled)
			assert.Equal(t, 2, provider.polls["sir-1"])
		})
	}
}

func TestSubmitAndPoll_FatalCancelsAndIsNonRecoverable(t *testing.T) {
	for _, code := range []model.StatusCode{
		model.StatusBadParameters,
		model.StatusAZGroupConstraint,
		model.StatusCapacityNotAvailable,
		model.StatusCapacityOversubscribed,
	} {
		t.Run(string(code), func(t *testing.T) {
			provider := newFakeProvider()
			provider.scripts = [][]pollStep{{status(code)}}

			request, err := newTestPoller(provider).SubmitAndPoll(context.Background(), testLaunch("0.02"))

			require.Error(t, err)
			assert.Nil(t, request)
			assert.True(t, IsNonRecoverable(err))
			assert.ErrorIs(t, err, ErrFatalStatus)
			assert.Contains(t, err.Error(), string(code))
			assert.Equal(t, []string{"sir-1"}, provider.cancelled)
		})
	}
}

func TestSubmitAndPoll_SuccessWithoutInstanceKeepsPolling(t *testing.T) {
	provider := newFakeProvider()
	provider.scripts = [][]pollStep{{fulfilled(""), fulfilled(""), fulfilled("i-0def")}}

	request, err := newTestPoller(provider).SubmitAndPoll(context.Background(), testLaunch("0.02"))

	require.NoError(t, err)
	require.NotNil(t, request)
	assert.Equal(t, "i-0def", request.InstanceID)
	assert.Equal(t, 3, provider.polls["sir-1"])
}

func TestSubmitAndPoll_TransientConditionsCountAsProgress(t *testing.T) {
	provider := newFakeProvider()
	provider.scripts = [][]pollStep{{
		{err: errors.New("RequestLimitExceeded")},
		{missing: true},
		status("some-future-status"),
		fulfilled("i-0abc"),
	}}

	request, err := newTestPoller(provider).SubmitAndPoll(context.Background(), testLaunch("0.02"))

	require.NoError(t, err)
	require.NotNil(t, request)
	assert.Equal(t, 4, provider.polls["sir-1"])
}

func TestSubmitAndPoll_BudgetExhausted(t *testing.T) {
	provider := newFakeProvider()
	provider.defaultScript = []pollStep{pending()}

	slept := 0
	sleep := func(ctx context.Context, d time.Duration) error {
		slept++
		assert.Equal(t, DefaultPollInterval, d)
		return nil
	}

	request, err := newTestPoller(provider, withPollerSleep(sleep)).SubmitAndPoll(context.Background(), testLaunch("0.02"))

	require.NoError(t, err)
	assert.Nil(t, request)
	assert.Equal(t, DefaultPollIterations, provider.polls["sir-1"])
	assert.Equal(t, DefaultPollIterations-1, slept)
	assert.Equal(t, []string{"sir-1"}, provider.cancelled)
}

func TestSubmitAndPoll_CustomSchedule(t *testing.T) {
	provider := newFakeProvider()

	request, err := newTestPoller(provider, WithPollSchedule(4, time.Millisecond)).SubmitAndPoll(context.Background(), testLaunch("0.02"))

	require.NoError(t, err)
	assert.Nil(t, request)
	assert.Equal(t, 4, provider.polls["sir-1"])
}

func TestSubmitAndPoll_SubmitFailureIsNonRecoverable(t *testing.T) {
	provider := newFakeProvider()
	provider.submitErr = errors.New("InvalidAMIID.Malformed")

	request, err := newTestPoller(provider).SubmitAndPoll(context.Background(), testLaunch("0.02"))

	require.Error(t, err)
	assert.Nil(t, request)
	assert.True(t, IsNonRecoverable(err))
	assert.Equal(t, 3, provider.submitCalls)
	assert.Zero(t, provider.cancelCalls)
}

func TestSubmitAndPoll_ContextCancelledWhileWaiting(t *testing.T) {
	provider := newFakeProvider()
	provider.defaultScript = []pollStep{pending()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleep := func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	request, err := newTestPoller(provider, withPollerSleep(sleep)).SubmitAndPoll(ctx, testLaunch("0.02"))

	require.Error(t, err)
	assert.Nil(t, request)
	assert.True(t, IsNonRecoverable(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, provider.polls["sir-1"])
	assert.Equal(t, []string{"sir-1"}, provider.cancelled)
	assert.NoError(t, provider.cancelCtxErr, "cancellation runs on a live context")
}

func TestCancel_Policies(t *testing.T) {
	tests := []struct {
		name          string
		policy        CancelPolicy
		cancelErrs    int
		wantErr       bool
		wantCalls     int
		wantCancelled []string
		wantFailed    float64
	}{
		{
			name:          "best effort succeeds",
			policy:        CancelPolicy{},
			wantCalls:     1,
			wantCancelled: []string{"sir-9"},
		},
		{
			name:       "best effort swallows failure",
			policy:     CancelPolicy{Attempts: 1},
			cancelErrs: 1,
			wantCalls:  1,
			wantFailed: 1,
		},
		{
			name:          "retries until it succeeds",
			policy:        CancelPolicy{Attempts: 3},
			cancelErrs:    2,
			wantCalls:     3,
			wantCancelled: []string{"sir-9"},
		},
		{
			name:       "strict surfaces failure",
			policy:     CancelPolicy{Attempts: 2, Strict: true},
			cancelErrs: 5,
			wantErr:    true,
			wantCalls:  2,
			wantFailed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeProvider()
			provider.cancelErrs = tt.cancelErrs

			m := metrics.NewSpot(prometheus.NewRegistry())
			err := newTestPoller(provider, WithCancelPolicy(tt.policy), WithPollerMetrics(m)).Cancel(context.Background(), "sir-9")

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, provider.cancelCalls)
			assert.Equal(t, tt.wantCancelled, provider.cancelled)
			assert.Equal(t, tt.wantFailed, testutil.ToFloat64(m.Cancellations.WithLabelValues(metrics.CancelFailed)))
		})
	}
}

func TestSubmitAndPoll_StrictCancelFailureOnFatal(t *testing.T) {
	provider := newFakeProvider()
	provider.scripts = [][]pollStep{{status(model.StatusBadParameters)}}
	provider.cancelErrs = 1

	_, err := newTestPoller(provider, WithCancelPolicy(CancelPolicy{Attempts: 1, Strict: true})).
		SubmitAndPoll(context.Background(), testLaunch("0.02"))

	require.Error(t, err)
	assert.True(t, IsNonRecoverable(err))
	assert.ErrorIs(t, err, ErrFatalStatus)
	assert.Contains(t, err.Error(), "cancel spot request sir-1")
}
