package checkout

import (
	"context"

	"github.com/dukerupert/atelier/internal/api"
)

// OrderAPI is the part of the shop API used to place orders.
type OrderAPI interface {
	Cart(ctx context.Context) (api.Cart, error)
	AddToCart(ctx context.Context, variantID int64, delta int) error
	RemoveFromCart(ctx context.Context, variantID int64) error
	CreateOrder(ctx context.Context, req api.CreateOrderRequest, idempotencyKey string) (api.Order, error)
}

// Placement is everything needed to create one order.
type Placement struct {
	Request        api.CreateOrderRequest
	Basket         Basket
	IdempotencyKey string
}

// Placed is the outcome of a successful placement. Warnings describe
// follow-up steps that failed after the order was created.
type Placed struct {
	Order    api.Order
	Warnings []string
}

// OrderPlacer creates orders for one kind of basket.
type OrderPlacer interface {
	Place(ctx context.Context, p Placement) (Placed, error)
}

// CartPlacer orders the persisted cart.
type CartPlacer struct {
	API OrderAPI
}

func (c CartPlacer) Place(ctx context.Context, p Placement) (Placed, error) {
	req := p.Request
	req.Items = nil
	o, err := c.API.CreateOrder(ctx, req, p.IdempotencyKey)
	if err != nil {
		return Placed{}, err
	}
	return Placed{Order: o}, nil
}

// DirectPlacer sends buy-now items with the order request, for servers that
// accept ad-hoc items. The cart is never touched.
type DirectPlacer struct {
	API OrderAPI
}

func (d DirectPlacer) Place(ctx context.Context, p Placement) (Placed, error) {
	req := p.Request
	req.Items = orderLines(p.Basket)
	o, err := d.API.CreateOrder(ctx, req, p.IdempotencyKey)
	if err != nil {
		return Placed{}, err
	}
	return Placed{Order: o}, nil
}

func orderLines(b Basket) []api.OrderLine {
	lines := make([]api.OrderLine, 0, len(b.Items))
	for _, it := range b.Items {
		lines = append(lines, api.OrderLine{ProductVariantID: it.VariantID, Quantity: it.Quantity})
	}
	return lines
}

// quantities maps variant id to quantity.
type quantities map[int64]int

func cartQuantities(c api.Cart) quantities {
	q := make(quantities, len(c.Items))
	for _, it := range c.Items {
		id := it.ProductVariant.ID
		if id == 0 {
			id = it.ProductVariantID
		}
		q[id] += it.Quantity
	}
	return q
}

func basketQuantities(b Basket) quantities {
	q := make(quantities, len(b.Items))
	for _, it := range b.Items {
		q[it.VariantID] += it.Quantity
	}
	return q
}

// reconcileCart drives the server cart to exactly want.
func reconcileCart(ctx context.Context, a OrderAPI, want quantities) error {
	cart, err := a.Cart(ctx)
	if err != nil {
		return err
	}
	have := cartQuantities(cart)

	for id := range have {
		if _, keep := want[id]; !keep {
			if err := a.RemoveFromCart(ctx, id); err != nil {
				return err
			}
		}
	}
	for id, qty := range want {
		delta := qty - have[id]
		if delta == 0 {
			continue
		}
		if err := a.AddToCart(ctx, id, delta); err != nil {
			return err
		}
	}
	return nil
}
