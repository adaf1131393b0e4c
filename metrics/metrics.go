// Package metrics exports envelope outcomes as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	respenvelope "github.com/blackwell-systems/resp-envelope"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector counts written envelopes.
type Collector struct {
	responses *prometheus.CounterVec
}

// New creates a Collector and registers it with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(namespace string, reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelope_responses_total",
			Help:      "Envelopes written, by outcome state, failure kind and status code.",
		}, []string{"state", "kind", "status"}),
	}
	if err := reg.Register(c.responses); err != nil {
		return nil, err
	}
	return c, nil
}

// Observe records one outcome. It matches respenvelope.Observer.
func (c *Collector) Observe(_ *http.Request, o respenvelope.Outcome) {
	c.responses.WithLabelValues(
		o.State.String(),
		o.Classification.Kind.String(),
		strconv.Itoa(o.Status),
	).Inc()
}

// Option returns the responder option that wires the collector in.
func (c *Collector) Option() respenvelope.Option {
	return respenvelope.WithObserver(c.Observe)
}

// Counter returns the underlying counter vector.
func (c *Collector) Counter() *prometheus.CounterVec {
	return c.responses
}
