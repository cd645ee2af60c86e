package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSample is a single spot price observation
type PriceSample struct {
	Price            decimal.Decimal
	Timestamp        time.Time
	InstanceType     string
	AvailabilityZone string
}

// PricePoint is a distinct price with the number of times it was observed
type PricePoint struct {
	Price decimal.Decimal
	Count int
}
