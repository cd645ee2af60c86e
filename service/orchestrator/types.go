package orchestrator

import (
	"context"
	"io"

	"github.com/elC0mpa/aws-spot/internal/config"
	"github.com/elC0mpa/aws-spot/model"
	"github.com/elC0mpa/aws-spot/service"
	"github.com/elC0mpa/aws-spot/service/spot"
	"github.com/rs/zerolog"
)

// SpotProvisioner is the lifecycle the workflows drive, implemented by *spot.Provisioner
type SpotProvisioner interface {
	Create(ctx context.Context, params model.InstanceParams) (*model.SpotRequestInfo, error)
	Stop(ctx context.Context) error
	Start(ctx context.Context) (*model.Instance, error)
	Delete(ctx context.Context) error
	ModifyAttributes(ctx context.Context, attributes map[string]string) error
	CreationValidation(ctx context.Context, params model.InstanceParams) error
	History(ctx context.Context, instanceType, availabilityZone string) (*spot.PriceHistory, error)
}

type orchestratorService struct {
	identityService service.IdentityService
	provisioner     SpotProvisioner
	properties      service.RuntimeProperties
	config          *config.Config
	logger          zerolog.Logger
	out             io.Writer
}

type OrchestratorService interface {
	Orchestrate(ctx context.Context, flags model.Flags) error
}

type createOutput struct {
	AccountID        string `yaml:"account_id,omitempty"`
	RequestID        string `yaml:"request_id"`
	InstanceID       string `yaml:"instance_id"`
	Region           string `yaml:"region"`
	AvailabilityZone string `yaml:"availability_zone"`
	BidPrice         string `yaml:"bid_price"`
}

type instanceOutput struct {
	InstanceID       string `yaml:"instance_id"`
	State            string `yaml:"state"`
	PrivateIPAddress string `yaml:"private_ip_address,omitempty"`
	PublicIPAddress  string `yaml:"public_ip_address,omitempty"`
}

type pricePointOutput struct {
	Price string `yaml:"price"`
	Count int    `yaml:"count"`
}

type historyOutput struct {
	InstanceType     string             `yaml:"instance_type"`
	AvailabilityZone string             `yaml:"availability_zone,omitempty"`
	Samples          int                `yaml:"samples"`
	InitialBid       string             `yaml:"initial_bid"`
	Prices           []pricePointOutput `yaml:"prices"`
}

type statusOutput struct {
	Node    string `yaml:"node"`
	Command string `yaml:"command"`
	Status  string `yaml:"status"`
}
