package spot

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultMaxAttempts is the number of prices tried before giving up
const DefaultMaxAttempts = 5

// DefaultPriceStep is added to the bid after every failed attempt
var DefaultPriceStep = decimal.RequireFromString("0.0001")

var seedMultiplier = decimal.NewFromInt(2)

// NoiseFilter discards rare or lowest prices before the seed price is chosen
type NoiseFilter struct {
	// MinOccurrences drops prices seen fewer times than this, zero disables it
	MinOccurrences int
	// SkipLowest drops this many of the lowest remaining prices
	SkipLowest int
}

func (f NoiseFilter) Enabled() bool {
	return f.MinOccurrences > 0 || f.SkipLowest > 0
}

// BidPolicy is the escalation policy of one creation
type BidPolicy struct {
	StartingPrice *decimal.Decimal
	MaxPrice      decimal.Decimal
	Step          decimal.Decimal
	MaxAttempts   int
	Filter        NoiseFilter
}

func NewBidPolicy(startingPrice *decimal.Decimal, maxPrice decimal.Decimal, filter NoiseFilter) BidPolicy {
	return BidPolicy{
		StartingPrice: startingPrice,
		MaxPrice:      maxPrice,
		Step:          DefaultPriceStep,
		MaxAttempts:   DefaultMaxAttempts,
		Filter:        filter,
	}
}

func (p BidPolicy) Validate() error {
	if !p.MaxPrice.IsPositive() {
		return fmt.Errorf("max price must be positive, got %s", p.MaxPrice)
	}
	if !p.Step.IsPositive() {
		return fmt.Errorf("price step must be positive, got %s", p.Step)
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.Filter.MinOccurrences < 0 || p.Filter.SkipLowest < 0 {
		return fmt.Errorf("noise filter values must not be negative")
	}
	return nil
}

// HasStartingPrice reports whether the pricing history lookup can be skipped
func (p BidPolicy) HasStartingPrice() bool {
	return p.StartingPrice != nil && p.StartingPrice.IsPositive()
}

// Allows reports whether attempt number attempt may bid price
func (p BidPolicy) Allows(price decimal.Decimal, attempt int) bool {
	return attempt <= p.MaxAttempts && price.LessThanOrEqual(p.MaxPrice)
}

// InitialPrice is the operator supplied starting price, or twice the lowest observed
// price rounded to cents. When the noise filter leaves nothing the unfiltered
// history is used.
func InitialPrice(history *PriceHistory, policy BidPolicy) (decimal.Decimal, error) {
	if policy.HasStartingPrice() {
		return *policy.StartingPrice, nil
	}

	if history.Len() == 0 {
		return decimal.Zero, nonRecoverable("select initial bid", ErrNoPriceHistory)
	}

	candidates := history
	if policy.Filter.Enabled() {
		if filtered := history.Filter(policy.Filter.MinOccurrences, policy.Filter.SkipLowest); filtered.Len() > 0 {
			candidates = filtered
		}
	}

	lowest, _ := candidates.Lowest()
	return lowest.RoundBank(2).Mul(seedMultiplier), nil
}

func NextPrice(current decimal.Decimal, policy BidPolicy) decimal.Decimal {
	return current.Add(policy.Step)
}
