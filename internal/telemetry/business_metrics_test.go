package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBusinessMetrics_Hooks(t *testing.T) {
	m := NewBusinessMetrics("test", prometheus.NewRegistry())

	m.CheckoutStarted("cart")
	m.CheckoutStarted("cart")
	m.CheckoutStep("entering_address")
	m.CheckoutCompleted("buy_now", "wallet")
	m.CheckoutFailed("EUNAVAILABLE")
	m.SagaCompensated("clear_cart")
	m.SagaRestoreFailed()
	m.ObserveAPICall("api.cart", "ok", 120*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CheckoutsStarted.WithLabelValues("cart")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutSteps.WithLabelValues("entering_address")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutsCompleted.WithLabelValues("buy_now", "wallet")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutFailures.WithLabelValues("EUNAVAILABLE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SagaCompensations.WithLabelValues("clear_cart")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SagaRestoreFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APICalls.WithLabelValues("api.cart", "ok")))
}

func TestBusinessMetrics_Breaker(t *testing.T) {
	m := NewBusinessMetrics("test", prometheus.NewRegistry())

	m.BreakerStateChanged("closed", "open")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("closed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerTrips))

	m.BreakerStateChanged("open", "half-open")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerTrips))
}
