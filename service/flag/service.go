package flag

import (
	"errors"
	"fmt"
	"os"

	"github.com/elC0mpa/aws-spot/model"
	"github.com/spf13/cobra"
)

// ErrNoCommand is returned when only help was requested or no subcommand was given
var ErrNoCommand = errors.New("no command given")

func NewService() *service {
	return NewServiceWithArgs(os.Args[1:])
}

func NewServiceWithArgs(args []string) *service {
	return &service{args: args}
}

func (s *service) GetParsedFlags() (model.Flags, error) {
	flags := model.Flags{}

	root := &cobra.Command{
		Use:           "aws-spot",
		Short:         "Provision AWS EC2 spot instances with automatic bid escalation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	persistent := root.PersistentFlags()
	persistent.StringVar(&flags.ConfigPath, "config", "", "Path to the YAML configuration file")
	persistent.StringVar(&flags.Node, "node", "default", "Node whose runtime properties are used")
	persistent.StringVar(&flags.Region, "region", "", "AWS region, overrides the configuration")
	persistent.StringVar(&flags.Profile, "profile", "", "AWS profile configuration")
	persistent.StringVarP(&flags.Output, "output", "o", model.OutputTable, "Output format: table or yaml")

	selected := func(command string) func(*cobra.Command, []string) error {
		return func(*cobra.Command, []string) error {
			flags.Command = command
			return nil
		}
	}

	create := &cobra.Command{
		Use:   model.CommandCreate,
		Short: "Bid for a spot instance until it is fulfilled",
		Args:  cobra.NoArgs,
		RunE:  selected(model.CommandCreate),
	}
	validate := &cobra.Command{
		Use:   model.CommandValidate,
		Short: "Check the instance parameters and AWS credentials",
		Args:  cobra.NoArgs,
		RunE:  selected(model.CommandValidate),
	}
	history := &cobra.Command{
		Use:   model.CommandHistory,
		Short: "Show the spot price history of the last 24 hours",
		Args:  cobra.NoArgs,
		RunE:  selected(model.CommandHistory),
	}
	for _, cmd := range []*cobra.Command{create, validate, history} {
		cmd.Flags().StringVar(&flags.InstanceType, "instance-type", "", "Instance type, overrides the configuration")
		cmd.Flags().StringVar(&flags.AvailabilityZone, "availability-zone", "", "Availability zone, overrides the configuration")
	}
	history.Flags().BoolVar(&flags.Chart, "chart", false, "Draw the price distribution as a bar chart")

	modify := &cobra.Command{
		Use:   model.CommandModify,
		Short: "Change attributes of the provisioned instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(flags.Attributes) == 0 {
				return fmt.Errorf("at least one --attribute is required")
			}
			flags.Command = model.CommandModify
			return nil
		},
	}
	modify.Flags().StringToStringVar(&flags.Attributes, "attribute", nil, "Attribute to set, as name=value")

	root.AddCommand(
		create,
		&cobra.Command{Use: model.CommandStop, Short: "Cancel the recorded spot request", Args: cobra.NoArgs, RunE: selected(model.CommandStop)},
		&cobra.Command{Use: model.CommandStart, Short: "Start the provisioned instance", Args: cobra.NoArgs, RunE: selected(model.CommandStart)},
		&cobra.Command{Use: model.CommandDelete, Short: "Terminate the instance and forget it", Args: cobra.NoArgs, RunE: selected(model.CommandDelete)},
		modify,
		validate,
		history,
		&cobra.Command{Use: model.CommandProperties, Short: "Show the runtime properties of the node", Args: cobra.NoArgs, RunE: selected(model.CommandProperties)},
	)

	root.SetArgs(s.args)
	if err := root.Execute(); err != nil {
		return model.Flags{}, err
	}

	if flags.Command == "" {
		return model.Flags{}, ErrNoCommand
	}
	if flags.Output != model.OutputTable && flags.Output != model.OutputYAML {
		return model.Flags{}, fmt.Errorf("unsupported output %q, use table or yaml", flags.Output)
	}

	return flags, nil
}
