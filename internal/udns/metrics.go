package udns

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Poll kinds used as the "kind" label of the polls counter.
const (
	pollKindTask     = "task"
	pollKindLocation = "location"
	pollKindReport   = "report"
)

// metrics holds the client's collectors. A nil *metrics records nothing.
type metrics struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.SummaryVec
	refreshes   prometheus.Counter
	rateLimited prometheus.Counter
	polls       *prometheus.CounterVec
}

// WithMetrics registers request, refresh, rate-limit, and poll collectors
// with reg. Clients sharing a registry share the collectors.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		if reg != nil {
			c.metrics = newMetrics(reg)
		}
	}
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ultradns_requests_total",
				Help: "API requests by method and HTTP status code",
			},
			[]string{"method", "code"},
		),
		latency: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       "ultradns_request_duration_seconds",
				Help:       "API request latency",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"method"},
		),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ultradns_token_refreshes_total",
			Help: "Access token refreshes triggered by errorCode 60001",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ultradns_rate_limited_total",
			Help: "Responses with HTTP 429",
		}),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ultradns_polls_total",
				Help: "Polls of pending tasks, locations, and reports",
			},
			[]string{"kind"},
		),
	}

	m.requests = register(reg, m.requests)
	m.latency = register(reg, m.latency)
	m.refreshes = register(reg, m.refreshes)
	m.rateLimited = register(reg, m.rateLimited)
	m.polls = register(reg, m.polls)

	return m
}

// register adds c to reg, returning the collector already registered under
// the same descriptor if there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing
		}
	}

	return c
}

func (m *metrics) observeRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}

	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}

	m.requests.WithLabelValues(method, code).Inc()
	m.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *metrics) refreshed() {
	if m != nil {
		m.refreshes.Inc()
	}
}

func (m *metrics) throttled() {
	if m != nil {
		m.rateLimited.Inc()
	}
}

func (m *metrics) polled(kind string) {
	if m != nil {
		m.polls.WithLabelValues(kind).Inc()
	}
}
