package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for storefront-level observability.
type BusinessMetrics struct {
	// Catalog engagement
	ProductViews    *prometheus.CounterVec
	ProductSearches *prometheus.CounterVec
	BuyNowStarted   *prometheus.CounterVec

	// Cart
	CartMutations *prometheus.CounterVec

	// Checkout funnel
	CheckoutsStarted   *prometheus.CounterVec
	CheckoutSteps      *prometheus.CounterVec
	CheckoutsCompleted *prometheus.CounterVec
	CheckoutFailures   *prometheus.CounterVec

	// Buy-now saga
	SagaCompensations   *prometheus.CounterVec
	SagaRestoreFailures prometheus.Counter

	// Accounts
	Logins  *prometheus.CounterVec
	Signups prometheus.Counter

	// Upstream shop API
	APICalls      *prometheus.CounterVec
	APILatency    *prometheus.HistogramVec
	BreakerState  *prometheus.GaugeVec
	BreakerTrips  prometheus.Counter
	AdminActions  *prometheus.CounterVec
	AddressLookup *prometheus.CounterVec
}

// NewBusinessMetrics registers the metrics with reg. A nil reg uses the
// default registerer.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "atelier"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	subsystem := "business"

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}

	return &BusinessMetrics{
		ProductViews:    counter("product_views_total", "Total product detail page views", "category"),
		ProductSearches: counter("product_searches_total", "Total catalog searches", "has_results"),
		BuyNowStarted:   counter("buy_now_started_total", "Buy-now snapshots taken", "mode"),

		CartMutations: counter("cart_mutations_total", "Cart changes by action", "action"),

		CheckoutsStarted:   counter("checkout_started_total", "Checkouts begun", "source"),
		CheckoutSteps:      counter("checkout_step_total", "Checkout stage entries", "stage"),
		CheckoutsCompleted: counter("checkout_completed_total", "Orders placed through checkout", "source", "payment_method"),
		CheckoutFailures:   counter("checkout_failed_total", "Failed order placements by error code", "code"),

		SagaCompensations: counter("buy_now_saga_compensations_total", "Buy-now saga steps undone", "step"),
		SagaRestoreFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "buy_now_saga_restore_failures_total",
			Help:      "Orders placed whose original cart could not be restored",
		}),

		Logins: counter("logins_total", "Login attempts by outcome", "outcome"),
		Signups: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "signups_total",
			Help:      "Accounts registered",
		}),

		APICalls: counter("api_calls_total", "Shop API calls by operation and outcome", "op", "outcome"),
		APILatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "api_call_duration_seconds",
			Help:      "Shop API call latency",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "api_breaker_state",
			Help:      "1 for the shop API circuit breaker's current state",
		}, []string{"state"}),
		BreakerTrips: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "api_breaker_trips_total",
			Help:      "Times the shop API circuit breaker opened",
		}),
		AdminActions:  counter("admin_actions_total", "Back-office writes by action", "action"),
		AddressLookup: counter("address_lookups_total", "Division lookups by outcome", "outcome"),
	}
}

// ObserveAPICall records one shop API call.
func (m *BusinessMetrics) ObserveAPICall(op, outcome string, d time.Duration) {
	m.APICalls.WithLabelValues(op, outcome).Inc()
	m.APILatency.WithLabelValues(op).Observe(d.Seconds())
}

// BreakerStateChanged tracks the circuit breaker.
func (m *BusinessMetrics) BreakerStateChanged(from, to string) {
	m.BreakerState.WithLabelValues(from).Set(0)
	m.BreakerState.WithLabelValues(to).Set(1)
	if to == "open" {
		m.BreakerTrips.Inc()
	}
}

// Checkout funnel hooks.

func (m *BusinessMetrics) CheckoutStarted(source string) {
	m.CheckoutsStarted.WithLabelValues(source).Inc()
}

func (m *BusinessMetrics) CheckoutStep(stage string) {
	m.CheckoutSteps.WithLabelValues(stage).Inc()
}

func (m *BusinessMetrics) CheckoutCompleted(source, method string) {
	m.CheckoutsCompleted.WithLabelValues(source, method).Inc()
}

func (m *BusinessMetrics) CheckoutFailed(code string) {
	m.CheckoutFailures.WithLabelValues(code).Inc()
}

// SagaCompensated counts an undone buy-now step.
func (m *BusinessMetrics) SagaCompensated(step string) {
	m.SagaCompensations.WithLabelValues(step).Inc()
}

// SagaRestoreFailed counts an order whose cart restore failed.
func (m *BusinessMetrics) SagaRestoreFailed() {
	m.SagaRestoreFailures.Inc()
}

// Global instance for easy access from handlers
var Business *BusinessMetrics

// InitBusinessMetrics initializes the global business metrics instance
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace, nil)
	return Business
}
