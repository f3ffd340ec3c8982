package routes

import (
	"github.com/dukerupert/atelier/internal/router"
)

// RegisterAdminRoutes registers the back-office routes under /admin.
// All of them sit behind deps.RequireAdmin.
func RegisterAdminRoutes(r *router.Router, deps AdminDeps) {
	admin := r.Group(deps.RequireAdmin)

	// Dashboard
	admin.Get("/admin", deps.DashboardHandler.ServeHTTP)

	// Product management
	admin.Get("/admin/products", deps.ProductHandler.List)
	admin.Get("/admin/products/new", deps.ProductHandler.New)
	admin.Post("/admin/products/new", deps.ProductHandler.Create)
	admin.Get("/admin/products/{id}/edit", deps.ProductHandler.Edit)
	admin.Post("/admin/products/{id}/edit", deps.ProductHandler.Update)
	admin.Get("/admin/products/{id}/delete", deps.ProductHandler.ConfirmDelete)
	admin.Post("/admin/products/{id}/delete", deps.ProductHandler.Delete)

	// Order management
	admin.Get("/admin/orders", deps.OrderHandler.List)
	admin.Post("/admin/orders/{id}/status", deps.OrderHandler.UpdateStatus)

	// Accounts
	admin.Get("/admin/users", deps.UserHandler.List)
	admin.Post("/admin/users/{id}/active", deps.UserHandler.SetActive)

	// Inventory
	admin.Get("/admin/stock", deps.StockHandler.Variants)
	admin.Get("/admin/stock/history", deps.StockHandler.History)
	admin.Get("/admin/stock/alerts", deps.StockHandler.Alerts)
	admin.Post("/admin/stock/alerts/{id}/resolve", deps.StockHandler.ResolveAlert)
	admin.Post("/admin/stock/{variant}/{kind}", deps.StockHandler.Move)
}
