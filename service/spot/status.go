package spot

import "github.com/elC0mpa/aws-spot/model"

// Outcome is the poller's reading of a spot request status code
type Outcome int

const (
	OutcomeProgress Outcome = iota
	OutcomeSuccess
	OutcomeFailure
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeFatal:
		return "fatal"
	default:
		return "progress"
	}
}

var statusOutcomes = map[model.StatusCode]Outcome{
	model.StatusPendingEvaluation:                 OutcomeProgress,
	model.StatusPendingFulfillment:                OutcomeProgress,
	model.StatusRequestCanceledAndInstanceRunning: OutcomeProgress,

	model.StatusFulfilled:                    OutcomeSuccess,
	model.StatusInstanceTerminatedByUser:     OutcomeSuccess,
	model.StatusSpotInstanceTerminatedByUser: OutcomeSuccess,

	model.StatusCancelledBeforeFulfillment:               OutcomeFailure,
	model.StatusConstraintNotFulfillable:                 OutcomeFailure,
	model.StatusInstanceTerminatedByPrice:                OutcomeFailure,
	model.StatusInstanceTerminatedCapacityOversubscribed: OutcomeFailure,
	model.StatusInstanceTerminatedLaunchGroupConstraint:  OutcomeFailure,
	model.StatusInstanceTerminatedNoCapacity:             OutcomeFailure,
	model.StatusLaunchGroupConstraint:                    OutcomeFailure,
	model.StatusLimitExceeded:                            OutcomeFailure,
	model.StatusMarkedForTermination:                     OutcomeFailure,
	model.StatusPlacementGroupConstraint:                 OutcomeFailure,
	model.StatusPriceTooLow:                              OutcomeFailure,
	model.StatusRequestCancelledAndInstanceRunning:       OutcomeFailure,
	model.StatusScheduleExpired:                          OutcomeFailure,
	model.StatusSystemError:                              OutcomeFailure,

	model.StatusAZGroupConstraint:      OutcomeFatal,
	model.StatusBadParameters:          OutcomeFatal,
	model.StatusCapacityNotAvailable:   OutcomeFatal,
	model.StatusCapacityOversubscribed: OutcomeFatal,
}

// ClassifyStatus maps a status code to its outcome. Unknown codes read as progress.
func ClassifyStatus(code model.StatusCode) (Outcome, bool) {
	outcome, known := statusOutcomes[code]
	return outcome, known
}

// Classify reads a polled request. A success code without an instance id is still progressing.
func Classify(request model.SpotRequest) Outcome {
	outcome, _ := ClassifyStatus(request.StatusCode)
	if outcome == OutcomeSuccess && request.InstanceID == "" {
		return OutcomeProgress
	}
	return outcome
}
