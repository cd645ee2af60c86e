// Package metrics exposes Prometheus counters for the spot provisioning flow.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "spot"

// Bid outcomes recorded per submitted price
const (
	OutcomeFulfilled = "fulfilled"
	OutcomeFailed    = "failed"
	OutcomeFatal     = "fatal"
)

// Cancellation results
const (
	CancelSucceeded = "succeeded"
	CancelFailed    = "failed"
)

// Spot holds the counters of one provisioning process. A nil *Spot records nothing.
type Spot struct {
	BidAttempts    *prometheus.CounterVec
	PollIterations prometheus.Counter
	Cancellations  *prometheus.CounterVec
}

// NewSpot creates the counters and registers them with reg when it is not nil.
func NewSpot(reg prometheus.Registerer) *Spot {
	m := &Spot{
		BidAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bid_attempts_total",
			Help:      "Spot requests submitted, partitioned by outcome.",
		}, []string{"outcome"}),
		PollIterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_iterations_total",
			Help:      "Spot request status polls performed.",
		}),
		Cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Spot request cancellations, partitioned by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(m.BidAttempts, m.PollIterations, m.Cancellations)
	}

	return m
}

func (m *Spot) ObserveBid(outcome string) {
	if m == nil {
		return
	}
	m.BidAttempts.WithLabelValues(outcome).Inc()
}

func (m *Spot) ObservePoll() {
	if m == nil {
		return
	}
	m.PollIterations.Inc()
}

func (m *Spot) ObserveCancel(result string) {
	if m == nil {
		return
	}
	m.Cancellations.WithLabelValues(result).Inc()
}
