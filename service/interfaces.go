package service

import (
	"context"
	"errors"
	"time"

	"github.com/elC0mpa/aws-spot/model"
)

// ErrPropertyNotFound is returned by RuntimeProperties.Get for keys never set
var ErrPropertyNotFound = errors.New("runtime property not found")

// IdentityService provides cloud account identity information
type IdentityService interface {
	GetAccountInfo(ctx context.Context) (*model.AccountInfo, error)
}

// SpotProvider executes the spot market API calls the provisioning core relies on
type SpotProvider interface {
	GetSpotPriceHistory(ctx context.Context, start, end time.Time, instanceType, availabilityZone string) ([]model.PriceSample, error)
	// GetSecurityGroups resolves security group ids to their names
	GetSecurityGroups(ctx context.Context, groupIDs []string) ([]string, error)
	// RequestSpotInstances returns the created requests, the first one being ours
	RequestSpotInstances(ctx context.Context, launch model.SpotLaunch) ([]model.SpotRequest, error)
	// GetSpotInstanceRequests returns the requests matching ids, or every request when ids is empty
	GetSpotInstanceRequests(ctx context.Context, requestIDs []string) ([]model.SpotRequest, error)
	CancelSpotInstanceRequests(ctx context.Context, requestIDs []string) ([]string, error)
}

// InstanceService is the generic compute capability a fulfilled spot request hands over to
type InstanceService interface {
	GetInstanceByID(ctx context.Context, instanceID string) (*model.Instance, error)
	StartInstance(ctx context.Context, instanceID string) error
	StopInstance(ctx context.Context, instanceID string) error
	TerminateInstance(ctx context.Context, instanceID string) error
	ModifyInstanceAttribute(ctx context.Context, instanceID, attribute, value string) error
}

// RuntimeProperties is the per node state owned by the orchestrator
type RuntimeProperties interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	All(ctx context.Context) (map[string]string, error)
}
