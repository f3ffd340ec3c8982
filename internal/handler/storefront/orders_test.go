package storefront

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/domain"
)

type mockOrders struct {
	order     api.Order
	cancelled int64
	cancelErr error
}

func (m *mockOrders) MyOrders(ctx context.Context) ([]api.Order, error) {
	return []api.Order{m.order}, nil
}

func (m *mockOrders) Order(ctx context.Context, id int64) (api.Order, error) {
	if id != m.order.ID {
		return api.Order{}, domain.NotFound("orders.get", "order", "x")
	}
	return m.order, nil
}

func (m *mockOrders) CancelOrder(ctx context.Context, id int64) error {
	m.cancelled = id
	return m.cancelErr
}

func TestOrderHandler_ConfirmCancel(t *testing.T) {
	tests := []struct {
		name           string
		status         domain.OrderStatus
		expectedStatus int
	}{
		{name: "pending order asks first", status: domain.OrderPending, expectedStatus: http.StatusOK},
		{name: "processing order asks first", status: domain.OrderProcessing, expectedStatus: http.StatusOK},
		{name: "shipped order cannot be cancelled", status: domain.OrderShipped, expectedStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, true)
			h := NewOrderHandler(&mockOrders{order: api.Order{ID: 42, Status: tt.status}}, env.rs)

			r := env.request(http.MethodGet, "/orders/42/cancel", nil)
			r.SetPathValue("id", "42")
			rec := httptest.NewRecorder()
			h.ConfirmCancel(rec, r)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			body := rec.Body.String()
			if tt.expectedStatus == http.StatusOK {
				if !strings.Contains(body, "Cancel order #42?") || !strings.Contains(body, `action="/orders/42/cancel"`) {
					t.Error("expected confirmation form")
				}
			} else if !strings.Contains(body, "This order can no longer be cancelled.") {
				t.Error("expected conflict message")
			}
		})
	}
}

func TestOrderHandler_Cancel(t *testing.T) {
	tests := []struct {
		name          string
		cancelErr     error
		expectedFlash string
	}{
		{name: "cancelled", expectedFlash: "Order #42 was cancelled."},
		{name: "rejected by the api", cancelErr: domain.Conflict("orders.cancel", "Only pending or processing orders can be cancelled."), expectedFlash: "Only pending or processing orders can be cancelled."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, true)
			orders := &mockOrders{order: api.Order{ID: 42, Status: domain.OrderPending}, cancelErr: tt.cancelErr}
			h := NewOrderHandler(orders, env.rs)

			r := env.request(http.MethodPost, "/orders/42/cancel", url.Values{})
			r.SetPathValue("id", "42")
			r.Header.Set("Referer", "http://example.com/orders/42/cancel")
			rec := httptest.NewRecorder()
			h.Cancel(rec, r)

			if orders.cancelled != 42 {
				t.Errorf("expected order 42 cancelled, got %d", orders.cancelled)
			}
			if rec.Code != http.StatusSeeOther {
				t.Fatalf("expected 303, got %d", rec.Code)
			}
			if flash := env.flash(t); flash != tt.expectedFlash {
				t.Errorf("expected flash %q, got %q", tt.expectedFlash, flash)
			}
		})
	}
}
