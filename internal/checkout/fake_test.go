package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/atelier/internal/api"
)

var errShopDown = errors.New("shop down")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeShop is an in-memory cart with failure hooks.
type fakeShop struct {
	mu sync.Mutex

	cart    quantities
	price   int64
	nextID  int64
	created []api.CreateOrderRequest
	keys    []string
	ordered []quantities

	cartCalls    int
	failCartCall int // fail the nth Cart call, 1-based
	addErr       func(id int64, delta int) error
	removeErr    func(id int64) error
	createErr    error
	onCreate     func()
	// cart calls fail with ctx.Err() once the context is done
	honourCtx bool
}

func newFakeShop(cart quantities) *fakeShop {
	if cart == nil {
		cart = quantities{}
	}
	return &fakeShop{cart: cart, price: 100000, nextID: 100}
}

func (f *fakeShop) Cart(ctx context.Context) (api.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cartCalls++
	if f.honourCtx && ctx.Err() != nil {
		return api.Cart{}, ctx.Err()
	}
	if f.failCartCall != 0 && f.cartCalls >= f.failCartCall {
		return api.Cart{}, errShopDown
	}
	var c api.Cart
	for id, qty := range f.cart {
		c.Items = append(c.Items, api.CartItem{
			ProductVariantID: id,
			Quantity:         qty,
			ProductVariant: api.CartVariant{
				ID:      id,
				Product: api.Product{ID: id, Name: "Item", Price: decimal.NewNullDecimal(decimal.NewFromInt(f.price))},
			},
		})
	}
	return c, nil
}

func (f *fakeShop) AddToCart(ctx context.Context, id int64, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.honourCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if f.addErr != nil {
		if err := f.addErr(id, delta); err != nil {
			return err
		}
	}
	f.cart[id] += delta
	if f.cart[id] <= 0 {
		delete(f.cart, id)
	}
	return nil
}

func (f *fakeShop) RemoveFromCart(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.honourCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if f.removeErr != nil {
		if err := f.removeErr(id); err != nil {
			return err
		}
	}
	delete(f.cart, id)
	return nil
}

func (f *fakeShop) CreateOrder(ctx context.Context, req api.CreateOrderRequest, key string) (api.Order, error) {
	if f.onCreate != nil {
		f.onCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return api.Order{}, f.createErr
	}
	snap := make(quantities, len(f.cart))
	for id, q := range f.cart {
		snap[id] = q
	}
	f.ordered = append(f.ordered, snap)
	f.created = append(f.created, req)
	f.keys = append(f.keys, key)
	if req.Items == nil {
		f.cart = quantities{}
	}
	f.nextID++
	return api.Order{ID: f.nextID, PaymentMethod: req.PaymentMethod}, nil
}

func (f *fakeShop) snapshot() quantities {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(quantities, len(f.cart))
	for id, q := range f.cart {
		out[id] = q
	}
	return out
}

type recordingObserver struct {
	compensated   []string
	restoreFailed int
}

func (r *recordingObserver) SagaCompensated(step string) { r.compensated = append(r.compensated, step) }
func (r *recordingObserver) SagaRestoreFailed()          { r.restoreFailed++ }
