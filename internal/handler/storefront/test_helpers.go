package storefront

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/cookie"
	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/session"
	"github.com/dukerupert/atelier/web"
)

// mockShop implements every storefront view of the API client. Unset funcs
// return zero values.
type mockShop struct {
	productsFunc       func(ctx context.Context, q api.ProductQuery) (api.List[api.Product], error)
	productFunc        func(ctx context.Context, id int64) (api.Product, error)
	categoriesFunc     func(ctx context.Context) ([]api.Category, error)
	productReviewsFunc func(ctx context.Context, productID int64) ([]api.Review, error)
	productStatsFunc   func(ctx context.Context, productID int64) (api.ReviewStats, error)

	cartFunc            func(ctx context.Context) (api.Cart, error)
	addToCartFunc       func(ctx context.Context, variantID int64, delta int) error
	removeFromCartFunc  func(ctx context.Context, variantID int64) error
	setCartQuantityFunc func(ctx context.Context, variantID int64, current, target int) error

	wishlistFunc           func(ctx context.Context) ([]api.WishlistItem, error)
	addToWishlistFunc      func(ctx context.Context, productID int64) error
	removeFromWishlistFunc func(ctx context.Context, productID int64) error
	inWishlistFunc         func(ctx context.Context, productID int64) (bool, error)

	loginFunc       func(ctx context.Context, username, password string) (api.Tokens, error)
	registerFunc    func(ctx context.Context, req api.RegisterRequest) error
	currentUserFunc func(ctx context.Context) (api.User, error)
}

func (m *mockShop) Products(ctx context.Context, q api.ProductQuery) (api.List[api.Product], error) {
	if m.productsFunc != nil {
		return m.productsFunc(ctx, q)
	}
	return api.List[api.Product]{}, nil
}

func (m *mockShop) Product(ctx context.Context, id int64) (api.Product, error) {
	if m.productFunc != nil {
		return m.productFunc(ctx, id)
	}
	return api.Product{}, nil
}

func (m *mockShop) Categories(ctx context.Context) ([]api.Category, error) {
	if m.categoriesFunc != nil {
		return m.categoriesFunc(ctx)
	}
	return nil, nil
}

func (m *mockShop) ProductReviews(ctx context.Context, productID int64) ([]api.Review, error) {
	if m.productReviewsFunc != nil {
		return m.productReviewsFunc(ctx, productID)
	}
	return nil, nil
}

func (m *mockShop) ProductStats(ctx context.Context, productID int64) (api.ReviewStats, error) {
	if m.productStatsFunc != nil {
		return m.productStatsFunc(ctx, productID)
	}
	return api.ReviewStats{}, nil
}

func (m *mockShop) Cart(ctx context.Context) (api.Cart, error) {
	if m.cartFunc != nil {
		return m.cartFunc(ctx)
	}
	return api.Cart{}, nil
}

func (m *mockShop) AddToCart(ctx context.Context, variantID int64, delta int) error {
	if m.addToCartFunc != nil {
		return m.addToCartFunc(ctx, variantID, delta)
	}
	return nil
}

func (m *mockShop) RemoveFromCart(ctx context.Context, variantID int64) error {
	if m.removeFromCartFunc != nil {
		return m.removeFromCartFunc(ctx, variantID)
	}
	return nil
}

func (m *mockShop) SetCartQuantity(ctx context.Context, variantID int64, current, target int) error {
	if m.setCartQuantityFunc != nil {
		return m.setCartQuantityFunc(ctx, variantID, current, target)
	}
	return nil
}

func (m *mockShop) Wishlist(ctx context.Context) ([]api.WishlistItem, error) {
	if m.wishlistFunc != nil {
		return m.wishlistFunc(ctx)
	}
	return nil, nil
}

func (m *mockShop) AddToWishlist(ctx context.Context, productID int64) error {
	if m.addToWishlistFunc != nil {
		return m.addToWishlistFunc(ctx, productID)
	}
	return nil
}

func (m *mockShop) RemoveFromWishlist(ctx context.Context, productID int64) error {
	if m.removeFromWishlistFunc != nil {
		return m.removeFromWishlistFunc(ctx, productID)
	}
	return nil
}

func (m *mockShop) InWishlist(ctx context.Context, productID int64) (bool, error) {
	if m.inWishlistFunc != nil {
		return m.inWishlistFunc(ctx, productID)
	}
	return false, nil
}

func (m *mockShop) Login(ctx context.Context, username, password string) (api.Tokens, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, username, password)
	}
	return api.Tokens{}, nil
}

func (m *mockShop) Register(ctx context.Context, req api.RegisterRequest) error {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, req)
	}
	return nil
}

func (m *mockShop) CurrentUser(ctx context.Context) (api.User, error) {
	if m.currentUserFunc != nil {
		return m.currentUserFunc(ctx)
	}
	return api.User{}, nil
}

// testEnv is a responder over the embedded templates and an in-memory
// session store holding one session.
type testEnv struct {
	rs    *handler.Responder
	store *session.MemoryStore
	sess  *session.Session
}

func newTestEnv(t *testing.T, signedIn bool) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer, err := handler.NewRenderer(web.Templates(), logger)
	if err != nil {
		t.Fatalf("failed to parse templates: %v", err)
	}

	store := session.NewMemoryStore(time.Hour)
	sess := &session.Session{ID: "test-session", Theme: session.ThemeLight}
	if signedIn {
		sess.SetTokens("access-token", "refresh-token", "mai")
	}
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}

	mgr := session.NewManager(store, cookie.NewConfig("", false), "atelier_session", time.Hour, logger)
	return &testEnv{rs: handler.NewResponder(renderer, mgr, logger), store: store, sess: sess}
}

// request builds a request carrying the env's session. form may be nil.
func (e *testEnv) request(method, target string, form url.Values) *http.Request {
	var r *http.Request
	if form != nil {
		r = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	s := *e.sess
	return r.WithContext(session.NewContext(r.Context(), &s))
}

// stored reloads the env's session from the store.
func (e *testEnv) stored(t *testing.T) *session.Session {
	t.Helper()
	s, err := e.store.Get(context.Background(), e.sess.ID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	return s
}

func (e *testEnv) flash(t *testing.T) string {
	t.Helper()
	if f := e.stored(t).Flash; f != nil {
		return f.Message
	}
	return ""
}

func intPtr(n int) *int { return &n }

func decimalOf(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimalOf(s))
}

// linenShirt has two variants: 11 with 3 units left and 12 sold out.
func linenShirt() api.Product {
	return api.Product{
		ID:            7,
		Name:          "Linen shirt",
		Price:         price("450000"),
		DiscountPrice: price("400000"),
		Category:      &api.Category{ID: 2, Name: "Shirts"},
		IsActive:      true,
		Variants: []api.Variant{
			{ID: 11, Size: "M", Color: "Sand", StockQuantity: 5, AvailableQuantity: intPtr(3)},
			{ID: 12, Size: "L", Color: "Sand", StockQuantity: 0},
		},
	}
}

func cartWith(variantID int64, qty int) api.Cart {
	p := linenShirt()
	return api.Cart{ID: 1, Items: []api.CartItem{{
		ID:             100,
		ProductVariant: api.CartVariant{ID: variantID, Size: "M", Color: "Sand", Product: p},
		Quantity:       qty,
	}}}
}
