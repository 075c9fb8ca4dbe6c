package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all firegate metrics.
// Every method is safe to call on a nil *Registry, which records nothing.
type Registry struct {
	gatherer prometheus.Gatherer

	// Allowlist metrics
	GrantsTotal      *prometheus.CounterVec
	RevocationsTotal *prometheus.CounterVec
	ActiveGrants     *prometheus.GaugeVec

	// Sweeper and coordinator
	SweepDuration prometheus.Histogram
	QueueDepth    prometheus.Gauge

	// Firewall tool latency
	GatewayDuration *prometheus.HistogramVec

	// HTTP surface
	APIRequests *prometheus.CounterVec
}

// New registers all collectors on reg. A nil reg uses a fresh private registry.
func New(reg *prometheus.Registry) *Registry {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	r := &Registry{gatherer: reg}

	r.GrantsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "firegate_grants_total",
		Help: "Grant requests processed, by zone and result",
	}, []string{"zone", "result"})

	r.RevocationsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "firegate_revocations_total",
		Help: "Revocations attempted, by zone and result",
	}, []string{"zone", "result"})

	r.ActiveGrants = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "firegate_active_grants",
		Help: "Grants currently recorded in the allowlist",
	}, []string{"zone"})

	r.SweepDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "firegate_sweep_duration_seconds",
		Help:    "Duration of expiry sweep cycles",
		Buckets: prometheus.DefBuckets,
	})

	r.QueueDepth = f.NewGauge(prometheus.GaugeOpts{
		Name: "firegate_queue_depth",
		Help: "Mutations waiting for the coordinator",
	})

	r.GatewayDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "firegate_gateway_duration_seconds",
		Help:    "Latency of firewall-cmd invocations",
		Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
	}, []string{"op"})

	r.APIRequests = f.NewCounterVec(prometheus.CounterOpts{
		Name: "firegate_api_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})

	return r
}

// Handler returns the exposition handler for this registry.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// RecordGrant records the outcome of a grant request.
func (r *Registry) RecordGrant(zone string, err error) {
	if r == nil {
		return
	}
	r.GrantsTotal.WithLabelValues(zone, result(err)).Inc()
}

// RecordRevoke records the outcome of a revocation.
func (r *Registry) RecordRevoke(zone string, err error) {
	if r == nil {
		return
	}
	r.RevocationsTotal.WithLabelValues(zone, result(err)).Inc()
}

// SetActiveGrants replaces the per-zone gauge values.
func (r *Registry) SetActiveGrants(counts map[string]int) {
	if r == nil {
		return
	}
	r.ActiveGrants.Reset()
	for zone, n := range counts {
		r.ActiveGrants.WithLabelValues(zone).Set(float64(n))
	}
}

// ObserveSweep records a sweep cycle duration.
func (r *Registry) ObserveSweep(d time.Duration) {
	if r == nil {
		return
	}
	r.SweepDuration.Observe(d.Seconds())
}

// ObserveGateway records the latency of one firewall-cmd step.
func (r *Registry) ObserveGateway(op string, d time.Duration) {
	if r == nil {
		return
	}
	r.GatewayDuration.WithLabelValues(op).Observe(d.Seconds())
}

// SetQueueDepth updates the coordinator backlog gauge.
func (r *Registry) SetQueueDepth(n int) {
	if r == nil {
		return
	}
	r.QueueDepth.Set(float64(n))
}

// RecordAPIRequest records an API request.
func (r *Registry) RecordAPIRequest(route string, status int) {
	if r == nil {
		return
	}
	r.APIRequests.WithLabelValues(route, statusString(status)).Inc()
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// statusString converts an HTTP status code to string.
func statusString(status int) string {
	return fmt.Sprintf("%d", status)
}
