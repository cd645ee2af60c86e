package flag

import "github.com/elC0mpa/aws-spot/model"

type service struct {
	args []string
}

type FlagService interface {
	GetParsedFlags() (model.Flags, error)
}
