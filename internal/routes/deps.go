package routes

import (
	"net/http"

	"github.com/dukerupert/atelier/internal/handler/admin"
	"github.com/dukerupert/atelier/internal/handler/storefront"
	"github.com/dukerupert/atelier/internal/router"
)

// StorefrontDeps contains dependencies for storefront routes
type StorefrontDeps struct {
	// Home
	HomeHandler http.Handler

	// Catalog (list, detail, add to bag, wishlist toggle)
	ProductHandler *storefront.ProductHandler

	// Cart
	CartHandler *storefront.CartHandler

	// Checkout wizard, buy now and the wallet flow
	CheckoutHandler *storefront.CheckoutHandler

	// Account pages
	OrderHandler    *storefront.OrderHandler
	WishlistHandler *storefront.WishlistHandler
	CouponHandler   *storefront.CouponHandler
	ReviewHandler   *storefront.ReviewHandler

	// Auth (login, register, logout, theme)
	AuthHandler *storefront.AuthHandler

	// AuthLimit throttles credential posts.
	AuthLimit router.Middleware
}

// AdminDeps contains dependencies for admin routes
type AdminDeps struct {
	// RequireAdmin gates every back-office route.
	RequireAdmin router.Middleware

	// Dashboard
	DashboardHandler http.Handler

	// Products
	ProductHandler *admin.ProductHandler

	// Orders
	OrderHandler *admin.OrderHandler

	// Users
	UserHandler *admin.UserHandler

	// Inventory
	StockHandler *admin.StockHandler
}
