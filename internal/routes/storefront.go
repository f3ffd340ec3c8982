package routes

import (
	"github.com/dukerupert/atelier/internal/middleware"
	"github.com/dukerupert/atelier/internal/router"
)

// RegisterStorefrontRoutes registers all customer-facing storefront routes.
// Browsing and the bag are open to everyone; the shop API still decides
// which calls need a signed-in shopper.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	// Home page
	r.Get("/{$}", deps.HomeHandler.ServeHTTP)

	// Product browsing
	r.Get("/products", deps.ProductHandler.List)
	r.Get("/products/{id}", deps.ProductHandler.Detail)

	// Authentication (credential posts are rate limited)
	r.Get("/login", deps.AuthHandler.LoginPage)
	r.Get("/register", deps.AuthHandler.RegisterPage)
	r.Post("/login", deps.AuthHandler.Login, deps.AuthLimit)
	r.Post("/register", deps.AuthHandler.Register, deps.AuthLimit)
	r.Post("/logout", deps.AuthHandler.Logout)
	r.Post("/theme", deps.AuthHandler.ToggleTheme)

	// Everything below needs a signed-in shopper
	account := r.Group(middleware.RequireAuth)

	// Shopping bag
	account.Get("/cart", deps.CartHandler.View)
	account.Post("/cart/items/{variant}", deps.CartHandler.Update)
	account.Post("/cart/items/{variant}/remove", deps.CartHandler.Remove)
	account.Post("/products/{id}/cart", deps.ProductHandler.AddToCart)
	account.Post("/products/{id}/wishlist", deps.ProductHandler.ToggleWishlist)
	account.Post("/products/{id}/reviews", deps.ReviewHandler.Create)

	// Checkout flow
	account.Post("/products/{id}/buy-now", deps.CheckoutHandler.BuyNow)
	account.Post("/checkout/start", deps.CheckoutHandler.Start)
	account.Get("/checkout", deps.CheckoutHandler.Show)
	account.Post("/checkout/proceed", deps.CheckoutHandler.Proceed)
	account.Post("/checkout/back", deps.CheckoutHandler.Back)
	account.Post("/checkout/address", deps.CheckoutHandler.Address)
	account.Get("/checkout/districts", deps.CheckoutHandler.Districts)
	account.Get("/checkout/wards", deps.CheckoutHandler.Wards)
	account.Post("/checkout/coupon", deps.CheckoutHandler.ApplyCoupon)
	account.Post("/checkout/coupon/remove", deps.CheckoutHandler.RemoveCoupon)
	account.Post("/checkout/wallet", deps.CheckoutHandler.StartWallet)
	account.Get("/checkout/wallet", deps.CheckoutHandler.Wallet)
	account.Get("/checkout/wallet/status", deps.CheckoutHandler.WalletStatus)
	account.Post("/checkout/wallet/confirm", deps.CheckoutHandler.ConfirmWallet)
	account.Post("/checkout/wallet/cancel", deps.CheckoutHandler.CancelWallet)
	account.Post("/checkout/place", deps.CheckoutHandler.Place)
	account.Get("/checkout/complete", deps.CheckoutHandler.Complete)

	// Account
	account.Get("/account", deps.AuthHandler.Account)
	account.Get("/orders", deps.OrderHandler.List)
	account.Get("/orders/{id}", deps.OrderHandler.Detail)
	account.Get("/orders/{id}/cancel", deps.OrderHandler.ConfirmCancel)
	account.Post("/orders/{id}/cancel", deps.OrderHandler.Cancel)
	account.Get("/wishlist", deps.WishlistHandler.List)
	account.Post("/wishlist/{id}", deps.WishlistHandler.Add)
	account.Post("/wishlist/{id}/remove", deps.WishlistHandler.Remove)
	account.Get("/coupons", deps.CouponHandler.List)
	account.Get("/reviews", deps.ReviewHandler.Mine)
	account.Get("/reviews/{id}/delete", deps.ReviewHandler.ConfirmDelete)
	account.Post("/reviews/{id}/delete", deps.ReviewHandler.Delete)
}
