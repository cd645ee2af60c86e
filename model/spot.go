package model

import "github.com/shopspring/decimal"

// StatusCode is the provider supplied disposition of a spot request
type StatusCode string

const (
	StatusPendingEvaluation                 StatusCode = "pending-evaluation"
	StatusPendingFulfillment                StatusCode = "pending-fulfillment"
	StatusRequestCanceledAndInstanceRunning StatusCode = "request-canceled-and-instance-running"

	StatusFulfilled                    StatusCode = "fulfilled"
	StatusInstanceTerminatedByUser     StatusCode = "instance-terminated-by-user"
	StatusSpotInstanceTerminatedByUser StatusCode = "spot-instance-terminated-by-user"

	StatusCancelledBeforeFulfillment               StatusCode = "cancelled-before-fulfillment"
	StatusConstraintNotFulfillable                 StatusCode = "constraint-not-fulfillable"
	StatusInstanceTerminatedByPrice                StatusCode = "instance-terminated-by-price"
	StatusInstanceTerminatedCapacityOversubscribed StatusCode = "instance-terminated-capacity-oversubscribed"
	StatusInstanceTerminatedLaunchGroupConstraint  StatusCode = "instance-terminated-launch-group-constraint"
	StatusInstanceTerminatedNoCapacity             StatusCode = "instance-terminated-no-capacity"
	StatusLaunchGroupConstraint                    StatusCode = "launch-group-constraint"
	StatusLimitExceeded                            StatusCode = "limit-exceeded"
	StatusMarkedForTermination                     StatusCode = "marked-for-termination"
	StatusPlacementGroupConstraint                 StatusCode = "placement-group-constraint"
	StatusPriceTooLow                              StatusCode = "price-too-low"
	StatusRequestCancelledAndInstanceRunning       StatusCode = "request-cancelled-and-instance-running"
	StatusScheduleExpired                          StatusCode = "schedule-expired"
	StatusSystemError                              StatusCode = "system-error"

	StatusAZGroupConstraint      StatusCode = "az-group-constraint"
	StatusBadParameters          StatusCode = "bad-parameters"
	StatusCapacityNotAvailable   StatusCode = "capacity-not-available"
	StatusCapacityOversubscribed StatusCode = "capacity-oversubscribed"
)

// SpotRequest is a spot instance request as last observed on the provider
type SpotRequest struct {
	RequestID        string
	BidPrice         decimal.Decimal
	StatusCode       StatusCode
	StatusMessage    string
	State            string
	InstanceID       string
	Region           string
	AvailabilityZone string
}

// SpotRequestInfo is what a successful creation hands back to the caller
type SpotRequestInfo struct {
	InstanceID       string
	RequestID        string
	Region           string
	AvailabilityZone string
	BidPrice         decimal.Decimal
}

// SpotLaunch is a single priced request submitted to the provider
type SpotLaunch struct {
	Price              decimal.Decimal
	InstanceType       string
	ImageID            string
	AvailabilityZone   string
	KeyName            string
	SecurityGroupNames []string
	UserData           string
	ClientToken        string
}

// InstanceParams are the caller supplied inputs of a spot instance creation
type InstanceParams struct {
	InstanceType     string
	ImageID          string
	AvailabilityZone string
	KeyName          string
	SecurityGroupIDs []string
	UserData         string

	// StartingPrice skips the pricing history lookup when set and positive
	StartingPrice *decimal.Decimal
	MaxPrice      decimal.Decimal
}
