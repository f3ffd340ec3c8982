package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/events"
	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/middleware"
	"github.com/dukerupert/atelier/internal/session"
	"github.com/dukerupert/atelier/internal/telemetry"
)

// ProductHandler serves the catalog pages and the product page actions.
type ProductHandler struct {
	catalog   Catalog
	carts     Carts
	wishlists Wishlists
	bus       events.Bus
	rs        *handler.Responder
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalog Catalog, carts Carts, wishlists Wishlists, bus events.Bus, rs *handler.Responder) *ProductHandler {
	return &ProductHandler{
		catalog:   catalog,
		carts:     carts,
		wishlists: wishlists,
		bus:       bus,
		rs:        rs,
	}
}

// List handles GET /products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := api.ProductQuery{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Page:   queryInt(r, "page", 1),
	}
	if c, err := strconv.ParseInt(r.URL.Query().Get("category"), 10, 64); err == nil && c > 0 {
		q.Category = c
	}

	var (
		products   api.List[api.Product]
		categories []api.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = h.catalog.Products(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = h.catalog.Categories(gctx)
		if err != nil {
			middleware.GetLogger(ctx).Warn("failed to load categories", slog.String("error", err.Error()))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		h.rs.Fail(w, r, err, "We couldn't load the products.")
		return
	}

	if q.Search != "" && telemetry.Business != nil {
		telemetry.Business.ProductSearches.WithLabelValues(strconv.FormatBool(len(products.Results) > 0)).Inc()
	}

	h.rs.Page(w, r, "storefront/products", map[string]interface{}{
		"Title":      "Shop",
		"Products":   products.Results,
		"Pager":      handler.Paginate(r, q.Page, products.Page),
		"Query":      q,
		"Categories": categories,
	})
}

// Detail handles GET /products/{id}
func (h *ProductHandler) Detail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}

	product, err := h.catalog.Product(ctx, id)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load this product.")
		return
	}

	// Reviews, stats and the wishlist flag are decoration: a failure hides
	// the section instead of failing the page.
	var (
		reviews    []api.Review
		stats      api.ReviewStats
		inWishlist bool
	)
	logger := middleware.GetLogger(ctx)
	soft := func(what string, fn func(context.Context) error) func() error {
		return func() error {
			if err := fn(ctx); err != nil {
				logger.Warn("product page section unavailable", slog.String("section", what), slog.String("error", err.Error()))
			}
			return nil
		}
	}

	var g errgroup.Group
	g.Go(soft("reviews", func(ctx context.Context) (err error) {
		reviews, err = h.catalog.ProductReviews(ctx, id)
		return err
	}))
	g.Go(soft("stats", func(ctx context.Context) (err error) {
		stats, err = h.catalog.ProductStats(ctx, id)
		return err
	}))
	if session.FromContext(ctx).Authenticated() {
		g.Go(soft("wishlist", func(ctx context.Context) (err error) {
			inWishlist, err = h.wishlists.InWishlist(ctx, id)
			return err
		}))
	}
	g.Wait()

	if telemetry.Business != nil {
		category := "none"
		if product.Category != nil {
			category = product.Category.Name
		}
		telemetry.Business.ProductViews.WithLabelValues(category).Inc()
	}

	h.rs.Page(w, r, "storefront/product", map[string]interface{}{
		"Title":      product.Name,
		"Product":    product,
		"Reviews":    reviews,
		"Stats":      stats,
		"InWishlist": inWishlist,
	})
}

// AddToCart handles POST /products/{id}/cart
func (h *ProductHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.rs.Fail(w, r, domain.Invalid("cart.add", "Invalid form data."), "")
		return
	}

	variantID, _ := strconv.ParseInt(r.PostFormValue("variant_id"), 10, 64)
	qty := formInt(r, "quantity", 1)

	product, err := h.catalog.Product(ctx, id)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't add that item.")
		return
	}
	cart, err := h.carts.Cart(ctx)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't add that item.")
		return
	}
	if err := checkAddable(product, variantID, qty, cart.Quantity(variantID)); err != nil {
		h.rs.Fail(w, r, err, "")
		return
	}

	if err := h.carts.AddToCart(ctx, variantID, qty); err != nil {
		h.rs.Fail(w, r, err, "We couldn't add that item.")
		return
	}
	cartChanged(ctx, h.bus, "add")

	h.rs.Success(w, r, fmt.Sprintf("Added %s to your bag.", product.Name), handler.Back(r, fmt.Sprintf("/products/%d", id)))
}

// checkAddable rejects adding qty units of a variant when the cart already holds inCart.
func checkAddable(p api.Product, variantID int64, qty, inCart int) error {
	const op = "cart.add"
	v, ok := p.Variant(variantID)
	if !ok {
		return domain.Invalid(op, "Please choose a size and color.")
	}
	if qty < 1 {
		return domain.Invalid(op, "Quantity must be at least 1.")
	}
	if left := v.Available() - inCart; qty > left {
		if left <= 0 {
			return domain.Conflict(op, "This variant is out of stock.")
		}
		return domain.Conflict(op, fmt.Sprintf("Only %d more available.", left))
	}
	return nil
}

// ToggleWishlist handles POST /products/{id}/wishlist
func (h *ProductHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}

	saved, err := h.wishlists.InWishlist(ctx, id)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't update your wishlist.")
		return
	}

	back := handler.Back(r, fmt.Sprintf("/products/%d", id))
	if saved {
		if err := h.wishlists.RemoveFromWishlist(ctx, id); err != nil {
			h.rs.Fail(w, r, err, "We couldn't update your wishlist.")
			return
		}
		h.rs.Success(w, r, "Removed from your wishlist.", back)
		return
	}
	if err := h.wishlists.AddToWishlist(ctx, id); err != nil {
		h.rs.Fail(w, r, err, "We couldn't update your wishlist.")
		return
	}
	h.rs.Success(w, r, "Saved to your wishlist.", back)
}

// cartChanged tells every replica the caller's cart badge is stale.
func cartChanged(ctx context.Context, bus events.Bus, action string) {
	if telemetry.Business != nil {
		telemetry.Business.CartMutations.WithLabelValues(action).Inc()
	}
	sid := session.IDFromContext(ctx)
	if bus == nil || sid == "" {
		return
	}
	if err := bus.Publish(ctx, events.CartChanged(sid)); err != nil {
		middleware.GetLogger(ctx).Warn("failed to publish cart event", slog.String("error", err.Error()))
	}
}
