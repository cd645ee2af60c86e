package spot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/elC0mpa/aws-spot/model"
	"github.com/elC0mpa/aws-spot/service"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// HistoryWindow is the look-back of the pricing history query
const HistoryWindow = 24 * time.Hour

// PriceHistory is an immutable price to observation count histogram
type PriceHistory struct {
	points map[string]model.PricePoint
	total  int
}

// NewPriceHistory aggregates samples by price. Negative prices are rejected.
func NewPriceHistory(samples []model.PriceSample) (*PriceHistory, error) {
	h := &PriceHistory{
		points: make(map[string]model.PricePoint, len(samples)),
	}

	for _, sample := range samples {
		if sample.Price.IsNegative() {
			return nil, fmt.Errorf("negative spot price %s observed at %s", sample.Price, sample.Timestamp.Format(time.RFC3339))
		}
		h.add(sample.Price, 1)
	}

	return h, nil
}

func (h *PriceHistory) add(price decimal.Decimal, count int) {
	key := price.String()
	point, ok := h.points[key]
	if !ok {
		point = model.PricePoint{Price: price}
	}
	point.Count += count
	h.points[key] = point
	h.total += count
}

// Len is the number of distinct prices
func (h *PriceHistory) Len() int {
	if h == nil {
		return 0
	}
	return len(h.points)
}

// Total is the number of samples the histogram was built from
func (h *PriceHistory) Total() int {
	if h == nil {
		return 0
	}
	return h.total
}

func (h *PriceHistory) Count(price decimal.Decimal) int {
	if h == nil {
		return 0
	}
	return h.points[price.String()].Count
}

// Points returns the distinct prices in ascending order
func (h *PriceHistory) Points() []model.PricePoint {
	if h == nil {
		return nil
	}

	points := make([]model.PricePoint, 0, len(h.points))
	for _, point := range h.points {
		points = append(points, point)
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Price.LessThan(points[j].Price)
	})

	return points
}

func (h *PriceHistory) Lowest() (decimal.Decimal, bool) {
	points := h.Points()
	if len(points) == 0 {
		return decimal.Zero, false
	}
	return points[0].Price, true
}

// Filter drops prices observed fewer than minOccurrences times, then the skipLowest
// lowest remaining prices. Zero values disable the respective step.
func (h *PriceHistory) Filter(minOccurrences, skipLowest int) *PriceHistory {
	filtered := &PriceHistory{
		points: make(map[string]model.PricePoint),
	}

	var kept []model.PricePoint
	for _, point := range h.Points() {
		if minOccurrences > 0 && point.Count < minOccurrences {
			continue
		}
		kept = append(kept, point)
	}

	if skipLowest > 0 {
		if skipLowest >= len(kept) {
			kept = nil
		} else {
			kept = kept[skipLowest:]
		}
	}

	for _, point := range kept {
		filtered.add(point.Price, point.Count)
	}

	return filtered
}

// Collector fetches the recent pricing history of an instance type in a zone
type Collector struct {
	provider service.SpotProvider
	retrier  *Retrier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewCollector(provider service.SpotProvider, retrier *Retrier, logger zerolog.Logger) *Collector {
	return &Collector{
		provider: provider,
		retrier:  retrier,
		logger:   logger,
		now:      time.Now,
	}
}

// Collect queries the trailing HistoryWindow. An empty answer, once retries are spent, is fatal.
func (c *Collector) Collect(ctx context.Context, instanceType, availabilityZone string) (*PriceHistory, error) {
	end := c.now().UTC()
	start := end.Add(-HistoryWindow)

	samples, err := ExecuteWithRetry(ctx, c.retrier, "get_spot_price_history",
		func(ctx context.Context) ([]model.PriceSample, error) {
			return c.provider.GetSpotPriceHistory(ctx, start, end, instanceType, availabilityZone)
		},
		func(samples []model.PriceSample) bool { return len(samples) == 0 },
	)
	if err != nil {
		return nil, nonRecoverable("collect pricing history",
			fmt.Errorf("%w for %s in %s: %v", ErrNoPriceHistory, instanceType, availabilityZone, err))
	}

	history, err := NewPriceHistory(samples)
	if err != nil {
		return nil, nonRecoverable("collect pricing history", err)
	}

	c.logger.Debug().
		Str("instance_type", instanceType).
		Str("availability_zone", availabilityZone).
		Int("samples", history.Total()).
		Int("prices", history.Len()).
		Msg("Collected spot pricing history")

	return history, nil
}
