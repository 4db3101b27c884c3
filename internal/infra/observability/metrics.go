package observability

import (
	"time"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the FieldCall backend.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	externalErrors   *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	checkoutSessions prometheus.Counter
	payments         *prometheus.CounterVec
	provisioned      *prometheus.CounterVec
	numbersSaved     prometheus.Counter
	detachedTasks    *prometheus.CounterVec
	requestsTotal    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fieldcall_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldcall_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldcall_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldcall_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		checkoutSessions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fieldcall_checkout_sessions_total",
				Help: "Total hosted-checkout sessions created.",
			},
		),
		payments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldcall_payments_verified_total",
				Help: "Total payment verifications by outcome.",
			},
			[]string{"outcome"},
		),
		provisioned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldcall_accounts_provisioned_total",
				Help: "Total accounts provisioned by path.",
			},
			[]string{"path"},
		),
		numbersSaved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fieldcall_agent_numbers_saved_total",
				Help: "Total agent numbers persisted to profiles.",
			},
		),
		detachedTasks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldcall_detached_tasks_total",
				Help: "Total detached side-effect tasks by outcome.",
			},
			[]string{"task", "outcome"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldcall_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrCheckoutSession increments the created-sessions counter.
func (m *Metrics) IncrCheckoutSession() {
	m.checkoutSessions.Inc()
}

// IncrPaymentVerified records a verification outcome ("paid" or "unpaid").
func (m *Metrics) IncrPaymentVerified(outcome string) {
	m.payments.WithLabelValues(outcome).Inc()
}

// IncrProvisioned records a provisioned account ("payment" or "privileged").
func (m *Metrics) IncrProvisioned(path string) {
	m.provisioned.WithLabelValues(path).Inc()
}

// IncrNumberSaved increments the persisted agent-number counter.
func (m *Metrics) IncrNumberSaved() {
	m.numbersSaved.Inc()
}

// IncrDetachedTask records a detached task outcome ("ok" or "error").
func (m *Metrics) IncrDetachedTask(task, outcome string) {
	m.detachedTasks.WithLabelValues(task, outcome).Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// SignupFunnelSnapshot returns cumulative signup-funnel counters for the
// GET /v1/metrics/signup endpoint.
func (m *Metrics) SignupFunnelSnapshot() *domain.SignupFunnelMetrics {
	paid := getCounterValue(m.payments, "paid")
	unpaid := getCounterValue(m.payments, "unpaid")
	totalRequests := getCounterValue(m.requestsTotal, "success") +
		getCounterValue(m.requestsTotal, "error")
	errorCount := getCounterValue(m.requestsTotal, "error")
	cacheHits := getCounterValue(m.cacheHits, "crm_contact")
	cacheMisses := getCounterValue(m.cacheMisses, "crm_contact")

	errorRate := float64(0)
	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
	}
	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.SignupFunnelMetrics{
		CheckoutSessionsCreated: int64(getSingleCounterValue(m.checkoutSessions)),
		PaymentsVerifiedPaid:    int64(paid),
		PaymentsVerifiedUnpaid:  int64(unpaid),
		AccountsProvisioned: int64(getCounterValue(m.provisioned, "payment") +
			getCounterValue(m.provisioned, "privileged")),
		NumbersSaved:         int64(getSingleCounterValue(m.numbersSaved)),
		DetachedTaskFailures: int64(getDetachedFailures(m.detachedTasks)),
		ErrorRate:            errorRate,
		ContactCacheHitRate:  cacheHitRate,
		Period:               "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getSingleCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getDetachedFailures(cv *prometheus.CounterVec) float64 {
	total := float64(0)
	for _, task := range []string{"crm_mirror", "number_convergence", "inline_number_save"} {
		total += func() float64 {
			counter := cv.WithLabelValues(task, "error")
			m := &dto.Metric{}
			if err := counter.(prometheus.Metric).Write(m); err != nil {
				return 0
			}
			if m.Counter != nil && m.Counter.Value != nil {
				return *m.Counter.Value
			}
			return 0
		}()
	}
	return total
}
