package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/elC0mpa/aws-spot/cmd/mcp/response"
	"github.com/elC0mpa/aws-spot/internal/config"
	"github.com/elC0mpa/aws-spot/internal/metrics"
	"github.com/elC0mpa/aws-spot/model"
	"github.com/elC0mpa/aws-spot/service"
	awsconfig "github.com/elC0mpa/aws-spot/service/aws/config"
	awsec2 "github.com/elC0mpa/aws-spot/service/aws/ec2"
	awssts "github.com/elC0mpa/aws-spot/service/aws/sts"
	"github.com/elC0mpa/aws-spot/service/orchestrator"
	"github.com/elC0mpa/aws-spot/service/properties"
	"github.com/elC0mpa/aws-spot/service/spot"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Options carries what every spot tool runs with
type Options struct {
	Config      *config.Config
	DefaultNode string
	Logger      zerolog.Logger
	Metrics     *metrics.Spot

	// Store is shared by every call so a memory store outlives a single tool call
	Store properties.Store
}

// session is the per call wiring of one node
type session struct {
	node        string
	store       properties.Store
	identity    service.IdentityService
	provisioner *spot.Provisioner
}

type sessionHandler func(ctx context.Context, sess *session, request mcp.CallToolRequest) (interface{}, error)

var nodeParam = mcp.WithString("node", mcp.Description("Node whose runtime properties hold the spot request, defaults to the server node"))

var instanceParamOptions = []mcp.ToolOption{
	nodeParam,
	mcp.WithString("instance_type", mcp.Description("EC2 instance type, overrides the configuration")),
	mcp.WithString("availability_zone", mcp.Description("Availability zone, overrides the configuration")),
	mcp.WithString("image_id", mcp.Description("AMI to launch, overrides the configuration")),
	mcp.WithString("max_price", mcp.Description("Highest bid in USD per hour, overrides the configuration")),
	mcp.WithString("starting_price", mcp.Description("First bid in USD per hour, skips the price history lookup")),
}

// RegisterSpotTools registers all spot provisioning tools with the MCP server
func RegisterSpotTools(s *server.MCPServer, opts Options) {
	s.AddTool(
		mcp.NewTool("spot_get_account_info",
			mcp.WithDescription("Get the AWS account identity the spot instances are provisioned in"),
		),
		withSession(opts, accountInfoHandler),
	)

	s.AddTool(
		mcp.NewTool("spot_create",
			append([]mcp.ToolOption{
				mcp.WithDescription("Bid for a spot instance, raising the bid until a request is fulfilled or the max price is reached, and record it for the node"),
			}, instanceParamOptions...)...,
		),
		withSession(opts, makeCreateHandler(opts.Config)),
	)

	s.AddTool(
		mcp.NewTool("spot_validate",
			append([]mcp.ToolOption{
				mcp.WithDescription("Check spot instance parameters and AWS credentials without submitting a request"),
			}, instanceParamOptions...)...,
		),
		withSession(opts, makeValidateHandler(opts.Config)),
	)

	s.AddTool(
		mcp.NewTool("spot_stop",
			mcp.WithDescription("Cancel the spot request recorded for the node"),
			nodeParam,
		),
		withSession(opts, stopHandler),
	)

	s.AddTool(
		mcp.NewTool("spot_start",
			mcp.WithDescription("Start the instance recorded for the node and report its addresses"),
			nodeParam,
		),
		withSession(opts, startHandler),
	)

	s.AddTool(
		mcp.NewTool("spot_delete",
			mcp.WithDescription("Terminate the instance recorded for the node, cancel its spot request and forget both"),
			nodeParam,
		),
		withSession(opts, deleteHandler),
	)

	s.AddTool(
		mcp.NewTool("spot_price_history",
			mcp.WithDescription("Get the last 24 hours of spot prices for an instance type and the bid a creation would open with"),
			mcp.WithString("instance_type", mcp.Description("EC2 instance type, defaults to the configuration")),
			mcp.WithString("availability_zone", mcp.Description("Availability zone, defaults to the configuration")),
		),
		withSession(opts, makeHistoryHandler(opts.Config)),
	)

	s.AddTool(
		mcp.NewTool("spot_get_properties",
			mcp.WithDescription("List the runtime properties recorded for the node"),
			nodeParam,
		),
		withSession(opts, propertiesHandler),
	)
}

func withSession(opts Options, handler sessionHandler) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cfg := opts.Config

		configSvc := awsconfig.NewService(cfg.AWS.MaxAttempts)
		awsCfg, err := configSvc.GetAWSCfg(ctx, cfg.AWS.Region, cfg.AWS.Profile)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to configure AWS: %v", err)), nil
		}

		sess := newSession(opts, awsCfg, request.GetString("node", opts.DefaultNode), request.Params.Name)

		resp, err := handler(ctx, sess, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, _ := json.MarshalIndent(resp, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	}
}

func newSession(opts Options, awsCfg aws.Config, node, tool string) *session {
	cfg := opts.Config
	logger := opts.Logger.With().Str("node", node).Str("tool", tool).Logger()

	ec2Svc := awsec2.NewService(awsCfg, cfg.AWS.ProductDescription)
	stsSvc := awssts.NewService(awsCfg)

	return &session{
		node:        node,
		store:       opts.Store,
		identity:    stsSvc,
		provisioner: orchestrator.NewProvisioner(cfg, ec2Svc, ec2Svc, stsSvc, opts.Store.Node(node), logger, opts.Metrics),
	}
}

func accountInfoHandler(ctx context.Context, sess *session, _ mcp.CallToolRequest) (interface{}, error) {
	info, err := sess.identity.GetAccountInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account info: %w", err)
	}
	return response.ConvertAccountInfo(info), nil
}

func makeCreateHandler(cfg *config.Config) sessionHandler {
	return func(ctx context.Context, sess *session, request mcp.CallToolRequest) (interface{}, error) {
		params, err := instanceParams(cfg, request)
		if err != nil {
			return nil, err
		}

		info, err := sess.provisioner.Create(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to create spot instance: %w", err)
		}
		return response.ConvertSpotRequest(sess.node, info), nil
	}
}

func makeValidateHandler(cfg *config.Config) sessionHandler {
	return func(ctx context.Context, sess *session, request mcp.CallToolRequest) (interface{}, error) {
		params, err := instanceParams(cfg, request)
		if err != nil {
			return nil, err
		}

		if err := sess.provisioner.CreationValidation(ctx, params); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}
		return response.Status{Node: sess.node, Operation: model.CommandValidate, Status: "valid"}, nil
	}
}

func stopHandler(ctx context.Context, sess *session, _ mcp.CallToolRequest) (interface{}, error) {
	if err := sess.provisioner.Stop(ctx); err != nil {
		return nil, fmt.Errorf("failed to cancel spot request: %w", err)
	}
	return response.Status{Node: sess.node, Operation: model.CommandStop, Status: "cancelled"}, nil
}

func startHandler(ctx context.Context, sess *session, _ mcp.CallToolRequest) (interface{}, error) {
	instance, err := sess.provisioner.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start instance: %w", err)
	}
	return response.ConvertInstance(instance), nil
}

func deleteHandler(ctx context.Context, sess *session, _ mcp.CallToolRequest) (interface{}, error) {
	if err := sess.provisioner.Delete(ctx); err != nil {
		return nil, fmt.Errorf("failed to delete spot instance: %w", err)
	}
	return response.Status{Node: sess.node, Operation: model.CommandDelete, Status: "deleted"}, nil
}

func makeHistoryHandler(cfg *config.Config) sessionHandler {
	return func(ctx context.Context, sess *session, request mcp.CallToolRequest) (interface{}, error) {
		instanceType := request.GetString("instance_type", cfg.Instance.InstanceType)
		availabilityZone := request.GetString("availability_zone", cfg.Instance.AvailabilityZone)
		if instanceType == "" {
			return nil, fmt.Errorf("instance_type is required")
		}

		history, err := sess.provisioner.History(ctx, instanceType, availabilityZone)
		if err != nil {
			return nil, fmt.Errorf("failed to get price history: %w", err)
		}

		var seed *decimal.Decimal
		filter := spot.NoiseFilter{MinOccurrences: cfg.Bidding.MinOccurrences, SkipLowest: cfg.Bidding.SkipLowest}
		if initial, err := spot.InitialPrice(history, spot.BidPolicy{Filter: filter}); err == nil {
			seed = &initial
		}

		return response.ConvertPriceHistory(instanceType, availabilityZone, history, seed), nil
	}
}

func propertiesHandler(ctx context.Context, sess *session, _ mcp.CallToolRequest) (interface{}, error) {
	props, err := sess.store.Node(sess.node).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read runtime properties: %w", err)
	}
	return response.Properties{Node: sess.node, Properties: props}, nil
}

// instanceParams applies the tool arguments over the configured instance
func instanceParams(cfg *config.Config, request mcp.CallToolRequest) (model.InstanceParams, error) {
	merged := *cfg
	merged.Instance.InstanceType = request.GetString("instance_type", cfg.Instance.InstanceType)
	merged.Instance.AvailabilityZone = request.GetString("availability_zone", cfg.Instance.AvailabilityZone)
	merged.Instance.ImageID = request.GetString("image_id", cfg.Instance.ImageID)
	merged.Instance.MaxPrice = request.GetString("max_price", cfg.Instance.MaxPrice)
	merged.Instance.StartingPrice = request.GetString("starting_price", cfg.Instance.StartingPrice)

	return merged.InstanceParams()
}
