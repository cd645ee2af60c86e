package orchestrator

import (
	"context"
	"fmt"
	"io"

	"github.com/elC0mpa/aws-spot/internal/config"
	"github.com/elC0mpa/aws-spot/model"
	"github.com/elC0mpa/aws-spot/service"
	"github.com/elC0mpa/aws-spot/service/spot"
	"github.com/elC0mpa/aws-spot/utils"
	"github.com/rs/zerolog"
)

func NewService(identityService service.IdentityService, provisioner SpotProvisioner, properties service.RuntimeProperties, cfg *config.Config, logger zerolog.Logger, out io.Writer) *orchestratorService {
	return &orchestratorService{
		identityService: identityService,
		provisioner:     provisioner,
		properties:      properties,
		config:          cfg,
		logger:          logger,
		out:             out,
	}
}

func (s *orchestratorService) Orchestrate(ctx context.Context, flags model.Flags) error {
	defer utils.StopSpinner()

	switch flags.Command {
	case model.CommandCreate:
		return s.createWorkflow(ctx, flags)
	case model.CommandStop:
		return s.statusWorkflow(flags, s.provisioner.Stop(ctx), "cancelled")
	case model.CommandStart:
		return s.startWorkflow(ctx, flags)
	case model.CommandDelete:
		return s.statusWorkflow(flags, s.provisioner.Delete(ctx), "deleted")
	case model.CommandModify:
		return s.statusWorkflow(flags, s.provisioner.ModifyAttributes(ctx, flags.Attributes), "modified")
	case model.CommandValidate:
		return s.validateWorkflow(ctx, flags)
	case model.CommandHistory:
		return s.historyWorkflow(ctx, flags)
	case model.CommandProperties:
		return s.propertiesWorkflow(ctx, flags)
	default:
		return fmt.Errorf("unknown command %q", flags.Command)
	}
}

func (s *orchestratorService) instanceParams(flags model.Flags) (model.InstanceParams, error) {
	params, err := s.config.InstanceParams()
	if err != nil {
		return params, err
	}

	if flags.InstanceType != "" {
		params.InstanceType = flags.InstanceType
	}
	if flags.AvailabilityZone != "" {
		params.AvailabilityZone = flags.AvailabilityZone
	}

	return params, nil
}

func (s *orchestratorService) createWorkflow(ctx context.Context, flags model.Flags) error {
	params, err := s.instanceParams(flags)
	if err != nil {
		return err
	}

	info, err := s.provisioner.Create(ctx, params)
	if err != nil {
		return err
	}

	accountID := s.accountID(ctx)

	utils.StopSpinner()

	if flags.Output == model.OutputYAML {
		return utils.WriteYAML(s.out, createOutput{
			AccountID:        accountID,
			RequestID:        info.RequestID,
			InstanceID:       info.InstanceID,
			Region:           info.Region,
			AvailabilityZone: info.AvailabilityZone,
			BidPrice:         info.BidPrice.String(),
		})
	}

	fmt.Fprintln(s.out, utils.RenderSpotRequestTable(accountID, info))
	return nil
}

func (s *orchestratorService) startWorkflow(ctx context.Context, flags model.Flags) error {
	instance, err := s.provisioner.Start(ctx)
	if err != nil {
		return err
	}

	utils.StopSpinner()

	out := instanceOutput{
		InstanceID:       instance.ID,
		State:            instance.State,
		PrivateIPAddress: instance.PrivateIPAddress,
		PublicIPAddress:  instance.PublicIPAddress,
	}
	if flags.Output == model.OutputYAML {
		return utils.WriteYAML(s.out, out)
	}

	fmt.Fprintf(s.out, "Instance %s is %s (private %s, public %s)\n", out.InstanceID, out.State, out.PrivateIPAddress, out.PublicIPAddress)
	return nil
}

func (s *orchestratorService) validateWorkflow(ctx context.Context, flags model.Flags) error {
	params, err := s.instanceParams(flags)
	if err != nil {
		return err
	}

	return s.statusWorkflow(flags, s.provisioner.CreationValidation(ctx, params), "valid")
}

func (s *orchestratorService) statusWorkflow(flags model.Flags, err error, status string) error {
	if err != nil {
		return err
	}

	utils.StopSpinner()

	if flags.Output == model.OutputYAML {
		return utils.WriteYAML(s.out, statusOutput{Node: flags.Node, Command: flags.Command, Status: status})
	}

	fmt.Fprintf(s.out, "%s: %s\n", flags.Node, status)
	return nil
}

func (s *orchestratorService) historyWorkflow(ctx context.Context, flags model.Flags) error {
	instanceType := flags.InstanceType
	if instanceType == "" {
		instanceType = s.config.Instance.InstanceType
	}
	availabilityZone := flags.AvailabilityZone
	if availabilityZone == "" {
		availabilityZone = s.config.Instance.AvailabilityZone
	}
	if instanceType == "" {
		return fmt.Errorf("an instance type is required, set instance.instance_type or --instance-type")
	}

	history, err := s.provisioner.History(ctx, instanceType, availabilityZone)
	if err != nil {
		return err
	}

	seed, err := spot.InitialPrice(history, spot.BidPolicy{Filter: noiseFilter(s.config)})
	if err != nil {
		return err
	}

	utils.StopSpinner()

	points := history.Points()
	if flags.Output == model.OutputYAML {
		out := historyOutput{
			InstanceType:     instanceType,
			AvailabilityZone: availabilityZone,
			Samples:          history.Total(),
			InitialBid:       seed.String(),
		}
		for _, point := range points {
			out.Prices = append(out.Prices, pricePointOutput{Price: point.Price.String(), Count: point.Count})
		}
		return utils.WriteYAML(s.out, out)
	}

	fmt.Fprintln(s.out, utils.RenderPriceHistoryTable(instanceType, availabilityZone, points, &seed))
	if flags.Chart {
		utils.DrawPriceChart(s.out, instanceType, availabilityZone, points)
	}
	return nil
}

func (s *orchestratorService) propertiesWorkflow(ctx context.Context, flags model.Flags) error {
	properties, err := s.properties.All(ctx)
	if err != nil {
		return err
	}

	utils.StopSpinner()

	if flags.Output == model.OutputYAML {
		return utils.WriteYAML(s.out, properties)
	}

	fmt.Fprintln(s.out, utils.RenderPropertiesTable(flags.Node, properties))
	return nil
}

func (s *orchestratorService) accountID(ctx context.Context) string {
	if s.identityService == nil {
		return ""
	}

	info, err := s.identityService.GetAccountInfo(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Could not resolve account id")
		return ""
	}
	return info.AccountID
}
