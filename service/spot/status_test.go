package spot

import (
	"testing"

	"github.com/elC0mpa/aws-spot/model"
	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code model.StatusCode
		want Outcome
	}{
		{model.StatusPendingEvaluation, OutcomeProgress},
		{model.StatusPendingFulfillment, OutcomeProgress},
		{model.StatusRequestCanceledAndInstanceRunning, OutcomeProgress},

		{model.StatusFulfilled, OutcomeSuccess},
		{model.StatusInstanceTerminatedByUser, OutcomeSuccess},
		{model.StatusSpotInstanceTerminatedByUser, OutcomeSuccess},

		{model.StatusCancelledBeforeFulfillment, OutcomeFailure},
		{model.StatusConstraintNotFulfillable, OutcomeFailure},
		{model.StatusInstanceTerminatedByPrice, OutcomeFailure},
		{model.StatusInstanceTerminatedCapacityOversubscribed, OutcomeFailure},
		{model.StatusInstanceTerminatedLaunchGroupConstraint, OutcomeFailure},
		{model.StatusInstanceTerminatedNoCapacity, OutcomeFailure},
		{model.StatusLaunchGroupConstraint, OutcomeFailure},
		{model.StatusLimitExceeded, OutcomeFailure},
		{model.StatusMarkedForTermination, OutcomeFailure},
		{model.StatusPlacementGroupConstraint, OutcomeFailure},
		{model.StatusPriceTooLow, OutcomeFailure},
		{model.StatusRequestCancelledAndInstanceRunning, OutcomeFailure},
		{model.StatusScheduleExpired, OutcomeFailure},
		{model.StatusSystemError, OutcomeFailure},

		{model.StatusAZGroupConstraint, OutcomeFatal},
		{model.StatusBadParameters, OutcomeFatal},
		{model.StatusCapacityNotAvailable, OutcomeFatal},
		{model.StatusCapacityOversubscribed, OutcomeFatal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			got, known := ClassifyStatus(tt.code)
			assert.True(t, known)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Len(t, statusOutcomes, len(tests))
}

func TestClassifyStatus_Unknown(t *testing.T) {
	got, known := ClassifyStatus("not-a-real-status")
	assert.False(t, known)
	assert.Equal(t, OutcomeProgress, got)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		request model.SpotRequest
		want    Outcome
	}{
		{
			name:    "fulfilled with instance",
			request: model.SpotRequest{StatusCode: model.StatusFulfilled, InstanceID: "i-0abc"},
			want:    OutcomeSuccess,
		},
		{
			name:    "fulfilled without instance keeps waiting",
			request: model.SpotRequest{StatusCode: model.StatusFulfilled},
			want:    OutcomeProgress,
		},
		{
			name:    "failure ignores instance id",
			request: model.SpotRequest{StatusCode: model.StatusPriceTooLow, InstanceID: "i-0abc"},
			want:    OutcomeFailure,
		},
		{
			name:    "unknown code",
			request: model.SpotRequest{StatusCode: "brand-new-status"},
			want:    OutcomeProgress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.request))
		})
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "progress", OutcomeProgress.String())
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "failure", OutcomeFailure.String())
	assert.Equal(t, "fatal", OutcomeFatal.String())
}
