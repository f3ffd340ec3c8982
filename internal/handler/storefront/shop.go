package storefront

import (
	"context"

	"github.com/dukerupert/atelier/internal/api"
)

// The storefront talks to the shop API through these narrow views of
// *api.Client so each handler can be tested with a hand-rolled fake.

// Catalog reads products, categories and reviews.
type Catalog interface {
	Products(ctx context.Context, q api.ProductQuery) (api.List[api.Product], error)
	Product(ctx context.Context, id int64) (api.Product, error)
	Categories(ctx context.Context) ([]api.Category, error)
	ProductReviews(ctx context.Context, productID int64) ([]api.Review, error)
	ProductStats(ctx context.Context, productID int64) (api.ReviewStats, error)
}

// Carts reads and changes the signed-in shopper's cart.
type Carts interface {
	Cart(ctx context.Context) (api.Cart, error)
	AddToCart(ctx context.Context, variantID int64, delta int) error
	RemoveFromCart(ctx context.Context, variantID int64) error
	SetCartQuantity(ctx context.Context, variantID int64, current, target int) error
}

// Wishlists manages saved products.
type Wishlists interface {
	Wishlist(ctx context.Context) ([]api.WishlistItem, error)
	AddToWishlist(ctx context.Context, productID int64) error
	RemoveFromWishlist(ctx context.Context, productID int64) error
	InWishlist(ctx context.Context, productID int64) (bool, error)
}

// Orders reads and cancels the shopper's orders.
type Orders interface {
	MyOrders(ctx context.Context) ([]api.Order, error)
	Order(ctx context.Context, id int64) (api.Order, error)
	CancelOrder(ctx context.Context, id int64) error
}

// Reviews manages the shopper's reviews.
type Reviews interface {
	CreateReview(ctx context.Context, req api.CreateReviewRequest) error
	MyReviews(ctx context.Context) ([]api.Review, error)
	DeleteReview(ctx context.Context, id int64) error
}

// CouponWallet lists the shopper's coupons.
type CouponWallet interface {
	Coupons(ctx context.Context, status string) ([]api.Coupon, error)
}

// Accounts signs shoppers in and up. It is served by the anonymous client so
// a stale token never gets in the way of signing in again.
type Accounts interface {
	Login(ctx context.Context, username, password string) (api.Tokens, error)
	Register(ctx context.Context, req api.RegisterRequest) error
}

// Profiles reads the signed-in shopper's account.
type Profiles interface {
	CurrentUser(ctx context.Context) (api.User, error)
}

var (
	_ Catalog      = (*api.Client)(nil)
	_ Carts        = (*api.Client)(nil)
	_ Wishlists    = (*api.Client)(nil)
	_ Orders       = (*api.Client)(nil)
	_ Reviews      = (*api.Client)(nil)
	_ CouponWallet = (*api.Client)(nil)
	_ Accounts     = (*api.Client)(nil)
	_ Profiles     = (*api.Client)(nil)
)
