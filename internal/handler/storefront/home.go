package storefront

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/middleware"
)

// HomeHandler renders the landing page.
type HomeHandler struct {
	catalog Catalog
	rs      *handler.Responder
}

// NewHomeHandler creates a new home handler
func NewHomeHandler(catalog Catalog, rs *handler.Responder) *HomeHandler {
	return &HomeHandler{catalog: catalog, rs: rs}
}

// ServeHTTP handles GET /
func (h *HomeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.catalog.Products(ctx, api.ProductQuery{Ordering: "-created_at"})
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load the collection.")
		return
	}

	// The page still works without the category strip.
	categories, err := h.catalog.Categories(ctx)
	if err != nil {
		middleware.GetLogger(ctx).Warn("failed to load categories", slog.String("error", err.Error()))
	}

	newest := products.Results
	if len(newest) > 8 {
		newest = newest[:8]
	}

	h.rs.Page(w, r, "storefront/home", map[string]interface{}{
		"Title":      "New arrivals",
		"Categories": categories,
		"Products":   newest,
	})
}
