package admin

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/form"
	"github.com/dukerupert/atelier/internal/handler"
)

// ProductHandler handles all product-related admin routes
type ProductHandler struct {
	shop BackOffice
	rs   *handler.Responder
}

// NewProductHandler creates a new product handler
func NewProductHandler(shop BackOffice, rs *handler.Responder) *ProductHandler {
	return &ProductHandler{shop: shop, rs: rs}
}

type productForm struct {
	Name          string          `form:"name" validate:"required,max=200"`
	Description   string          `form:"description" validate:"max=5000"`
	Price         decimal.Decimal `form:"price"`
	DiscountPrice decimal.Decimal `form:"discount_price"`
	CategoryID    int64           `form:"category_id" validate:"required"`
	IsActive      bool            `form:"is_active"`
	IsFeatured    bool            `form:"is_featured"`
	IsNew         bool            `form:"is_new"`

	Variants []api.VariantInput `form:"-"`
}

// parseProductForm decodes and checks the product form. Variant rows are
// posted as parallel variant_size, variant_color and variant_stock lists.
func parseProductForm(r *http.Request) (productForm, error) {
	const op = "admin.product"
	var f productForm
	if err := r.ParseForm(); err != nil {
		return f, domain.Invalid(op, "Invalid form data.")
	}

	verr := form.Decode(op, r.PostForm, &f)
	form.Trim(&f)
	if err := form.Validate(op, f); err != nil {
		for k, v := range domain.GetValidationFields(err) {
			verr = domain.AddFieldError(verr, k, v)
		}
	}
	if !f.Price.IsPositive() {
		verr = domain.AddFieldError(verr, "price", "Price must be greater than 0.")
	}
	if !f.DiscountPrice.IsZero() && (f.DiscountPrice.IsNegative() || f.DiscountPrice.GreaterThanOrEqual(f.Price)) {
		verr = domain.AddFieldError(verr, "discount_price", "Sale price must be below the regular price.")
	}

	sizes := r.PostForm["variant_size"]
	colors := r.PostForm["variant_color"]
	stocks := r.PostForm["variant_stock"]
	for i := range sizes {
		size := strings.TrimSpace(sizes[i])
		color := ""
		if i < len(colors) {
			color = strings.TrimSpace(colors[i])
		}
		if size == "" && color == "" {
			continue
		}
		stock := 0
		if i < len(stocks) && strings.TrimSpace(stocks[i]) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(stocks[i]))
			if err != nil || n < 0 {
				verr = domain.AddFieldError(verr, "variants", "Stock must be a whole number of 0 or more.")
				continue
			}
			stock = n
		}
		f.Variants = append(f.Variants, api.VariantInput{Size: size, Color: color, StockQuantity: stock})
	}

	if ve, ok := verr.(*domain.ValidationError); ok {
		ve.Op = op
		return f, ve
	}
	return f, nil
}

func (f productForm) input() api.ProductInput {
	in := api.ProductInput{
		Name:        f.Name,
		Description: f.Description,
		Price:       f.Price,
		CategoryID:  f.CategoryID,
		IsActive:    f.IsActive,
		IsFeatured:  f.IsFeatured,
		IsNew:       f.IsNew,
		Variants:    f.Variants,
	}
	if !f.DiscountPrice.IsZero() {
		in.DiscountPrice = decimal.NewNullDecimal(f.DiscountPrice)
	}
	return in
}

func formFromProduct(p api.Product) productForm {
	f := productForm{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.BasePrice(),
		IsActive:    p.IsActive,
		IsFeatured:  p.IsFeatured,
		IsNew:       p.IsNew,
	}
	if p.DiscountPrice.Valid {
		f.DiscountPrice = p.DiscountPrice.Decimal
	}
	if p.Category != nil {
		f.CategoryID = p.Category.ID
	}
	return f
}

// List handles GET /admin/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	products, err := h.shop.AdminProducts(r.Context(), q)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load products.")
		return
	}
	h.rs.Page(w, r, "admin/products", map[string]interface{}{
		"Title":    "Products",
		"Products": products.Results,
		"Pager":    handler.Paginate(r, q.Page, products.Page),
		"Query":    q,
	})
}

func (h *ProductHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, id int64, f productForm, fields map[string]string) {
	categories, err := h.shop.Categories(r.Context())
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load categories.")
		return
	}
	title, action := "New product", "/admin/products/new"
	if id > 0 {
		title, action = "Edit product", fmt.Sprintf("/admin/products/%d/edit", id)
	}
	h.rs.PageStatus(w, r, status, "admin/product_form", map[string]interface{}{
		"Title":      title,
		"Action":     action,
		"Editing":    id > 0,
		"Form":       f,
		"Errors":     fields,
		"Categories": categories,
	})
}

// New handles GET /admin/products/new
func (h *ProductHandler) New(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, 0, productForm{IsActive: true}, nil)
}

// Create handles POST /admin/products/new
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, err := parseProductForm(r)
	if err != nil {
		h.formFailed(w, r, 0, f, err)
		return
	}
	p, err := h.shop.CreateProduct(r.Context(), f.input())
	if err != nil {
		h.formFailed(w, r, 0, f, err)
		return
	}
	recordAction("product_create")
	h.rs.Success(w, r, fmt.Sprintf("Created %s.", p.Name), "/admin/products")
}

// Edit handles GET /admin/products/{id}/edit
func (h *ProductHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	p, err := h.shop.AdminProduct(r.Context(), id)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load this product.")
		return
	}
	h.renderForm(w, r, http.StatusOK, id, formFromProduct(p), nil)
}

// Update handles POST /admin/products/{id}/edit
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	f, err := parseProductForm(r)
	if err != nil {
		h.formFailed(w, r, id, f, err)
		return
	}
	// Variants are managed from the stock screens once a product exists.
	in := f.input()
	in.Variants = nil
	p, err := h.shop.UpdateProduct(r.Context(), id, in)
	if err != nil {
		h.formFailed(w, r, id, f, err)
		return
	}
	recordAction("product_update")
	h.rs.Success(w, r, fmt.Sprintf("Saved %s.", p.Name), "/admin/products")
}

// formFailed re-renders the form for field errors and falls back to Fail otherwise.
func (h *ProductHandler) formFailed(w http.ResponseWriter, r *http.Request, id int64, f productForm, err error) {
	if fields := domain.GetValidationFields(err); fields != nil {
		h.renderForm(w, r, http.StatusBadRequest, id, f, fields)
		return
	}
	h.rs.Fail(w, r, err, "We couldn't save the product.")
}

// ConfirmDelete handles GET /admin/products/{id}/delete
func (h *ProductHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	p, err := h.shop.AdminProduct(r.Context(), id)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load this product.")
		return
	}
	h.rs.Page(w, r, "admin/confirm", map[string]interface{}{
		"Title":   "Delete product",
		"Heading": fmt.Sprintf("Delete %s?", p.Name),
		"Body":    "The product and its variants will be removed from the catalog.",
		"Action":  fmt.Sprintf("/admin/products/%d/delete", id),
		"Confirm": "Delete product",
		"Return":  "/admin/products",
	})
}

// Delete handles POST /admin/products/{id}/delete
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	if err := h.shop.DeleteProduct(r.Context(), id); err != nil {
		h.rs.Fail(w, r, err, "We couldn't delete the product.")
		return
	}
	recordAction("product_delete")
	h.rs.Success(w, r, "Product deleted.", "/admin/products")
}
