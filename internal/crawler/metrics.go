package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters owned by one engine instance. Methods are
// nil-safe so components can run without metrics in tests.
type Metrics struct {
	requests        prometheus.Counter
	requestErrors   prometheus.Counter
	retries         prometheus.Counter
	rateLimitHits   prometheus.Counter
	robotsBlocked   prometheus.Counter
	robotsLoadFails prometheus.Counter
	renders         prometheus.Counter
	matches         prometheus.Counter
}

// NewMetrics registers the crawl counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounter(prometheus.CounterOpts{
			Name: "ptc_requests_total",
			Help: "Total fetch attempts dispatched, both static and rendered.",
		}),
		requestErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "ptc_request_errors_total",
			Help: "Total fetch attempts that resulted in an error.",
		}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Name: "ptc_retries_total",
			Help: "Total fetch attempts beyond the first per task.",
		}),
		rateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "ptc_rate_limit_hits_total",
			Help: "Total HTTP 429 responses received.",
		}),
		robotsBlocked: factory.NewCounter(prometheus.CounterOpts{
			Name: "ptc_robots_blocked_total",
			Help: "Total URLs skipped because robots policy disallows them.",
		}),
		robotsLoadFails: factory.NewCounter(prometheus.CounterOpts{
			Name: "ptc_robots_load_errors_total",
			Help: "Total robots.txt loads that degraded to the default policy.",
		}),
		renders: factory.NewCounter(prometheus.CounterOpts{
			Name: "ptc_renders_total",
			Help: "Total pages fetched through the headless browser.",
		}),
		matches: factory.NewCounter(prometheus.CounterOpts{
			Name: "ptc_matches_total",
			Help: "Total pages whose text matched the criteria set.",
		}),
	}
}

// IncRequests counts one dispatched fetch attempt.
func (m *Metrics) IncRequests() {
	if m != nil {
		m.requests.Inc()
	}
}

// IncRequestErrors counts one failed fetch attempt.
func (m *Metrics) IncRequestErrors() {
	if m != nil {
		m.requestErrors.Inc()
	}
}

// IncRetries counts one retry attempt.
func (m *Metrics) IncRetries() {
	if m != nil {
		m.retries.Inc()
	}
}

// IncRateLimitHits counts one HTTP 429 response.
func (m *Metrics) IncRateLimitHits() {
	if m != nil {
		m.rateLimitHits.Inc()
	}
}

// IncRobotsBlocked counts one robots-disallowed URL.
func (m *Metrics) IncRobotsBlocked() {
	if m != nil {
		m.robotsBlocked.Inc()
	}
}

// IncRobotsLoadError counts one degraded robots load.
func (m *Metrics) IncRobotsLoadError() {
	if m != nil {
		m.robotsLoadFails.Inc()
	}
}

// IncRenders counts one headless render.
func (m *Metrics) IncRenders() {
	if m != nil {
		m.renders.Inc()
	}
}

// IncMatches counts one criteria match.
func (m *Metrics) IncMatches() {
	if m != nil {
		m.matches.Inc()
	}
}
