package api

import (
	"context"
	"fmt"
	"net/http"
)

// CreateOrder places an order. With an empty Items list the API builds the
// order from the persisted cart. idempotencyKey may be empty.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest, idempotencyKey string) (Order, error) {
	var o Order
	r := request{op: "order.create", method: http.MethodPost, path: "orders/create/", body: req}
	if idempotencyKey != "" {
		r.header = http.Header{"Idempotency-Key": []string{idempotencyKey}}
	}
	err := c.do(ctx, r, &o)
	return o, err
}

// MyOrders lists the shopper's orders, newest first.
func (c *Client) MyOrders(ctx context.Context) ([]Order, error) {
	var out List[Order]
	err := c.get(ctx, "order.mine", "orders/my-orders/", nil, &out)
	return out.Results, err
}

// Order fetches one of the shopper's orders.
func (c *Client) Order(ctx context.Context, id int64) (Order, error) {
	var o Order
	err := c.get(ctx, "order.get", fmt.Sprintf("orders/%d/", id), nil, &o)
	return o, err
}

// CancelOrder asks the API to cancel an order. The API decides whether the
// order's state allows it.
func (c *Client) CancelOrder(ctx context.Context, id int64) error {
	return c.send(ctx, "order.cancel", http.MethodPost, fmt.Sprintf("orders/%d/cancel/", id), struct{}{}, nil)
}
