// Package metrics exposes interpreter activity as Prometheus metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/farmer/internal/app"
	"github.com/bft-labs/farmer/internal/domain"
)

const namespace = "farmer"

// Collector implements app.EventEmitter and records transitions,
// invocations and ignored events.
type Collector struct {
	transitions *prometheus.CounterVec
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	ignored     *prometheus.CounterVec
	state       *prometheus.GaugeVec
}

// NewCollector creates a collector and registers it with reg. A nil reg
// creates a private registry.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Total number of state transitions",
			},
			[]string{"from", "to", "event"},
		),
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total number of remote operations by result",
			},
			[]string{"operation", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_seconds",
				Help:      "Remote operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ignored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ignored_events_total",
				Help:      "Events with no handler in the current state",
			},
			[]string{"state", "event"},
		),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "state",
				Help:      "1 for the current machine state, 0 otherwise",
			},
			[]string{"state"},
		),
	}

	for _, col := range []prometheus.Collector{c.transitions, c.invocations, c.duration, c.ignored, c.state} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	c.setState(domain.StateInitial)
	return c, nil
}

// OnTransition counts the transition and moves the state gauge.
func (c *Collector) OnTransition(tr app.Transition, snap domain.Snapshot) {
	c.transitions.WithLabelValues(tr.From.String(), tr.To.String(), tr.Event.String()).Inc()
	c.setState(snap.State)
}

// OnInvocation records the outcome and duration of a remote operation.
func (c *Collector) OnInvocation(op app.Operation, duration time.Duration, err error) {
	c.invocations.WithLabelValues(op.String(), resultLabel(err)).Inc()
	c.duration.WithLabelValues(op.String()).Observe(duration.Seconds())
}

// OnIgnored counts events dropped for lack of a handler.
func (c *Collector) OnIgnored(state domain.State, kind domain.EventKind) {
	c.ignored.WithLabelValues(state.String(), kind.String()).Inc()
}

// resultLabel keeps the result label to a fixed set. Codes sent by the
// gateway collapse into "error".
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var le *domain.LedgerError
	if !errors.As(err, &le) {
		return "error"
	}
	switch le.Code {
	case domain.ErrCodeNoConnection, domain.ErrCodeWrongNetwork, domain.ErrCodeTimeout, domain.ErrCodeEmptyResponse:
		return string(le.Code)
	}
	return "error"
}

func (c *Collector) setState(current domain.State) {
	for _, s := range domain.AllStates() {
		v := 0.0
		if s == current {
			v = 1
		}
		c.state.WithLabelValues(s.String()).Set(v)
	}
}

var _ app.EventEmitter = (*Collector)(nil)
