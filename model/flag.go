package model

// Commands understood by the orchestrator
const (
	CommandCreate     = "create"
	CommandStop       = "stop"
	CommandStart      = "start"
	CommandDelete     = "delete"
	CommandModify     = "modify"
	CommandValidate   = "validate"
	CommandHistory    = "history"
	CommandProperties = "properties"
)

// Output formats
const (
	OutputTable = "table"
	OutputYAML  = "yaml"
)

type Flags struct {
	// Command is the workflow selected on the command line
	Command string

	// Common flags
	ConfigPath string
	Node       string
	Output     string

	// AWS-specific flags
	Region  string
	Profile string

	// instance overrides, also used by history
	InstanceType     string
	AvailabilityZone string
	Chart            bool

	// modify flags
	Attributes map[string]string
}
