package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/atelier/internal/domain"
)

// IsAdmin asks the API whether the current account may use the back-office.
// The answer only gates navigation; every admin endpoint is enforced upstream.
func (c *Client) IsAdmin(ctx context.Context) (bool, error) {
	var resp struct {
		IsAdmin bool `json:"is_admin"`
	}
	err := c.get(ctx, "admin.check", "admin/check-admin/", nil, &resp)
	return resp.IsAdmin, err
}

// Stats is a loosely typed statistics payload.
type Stats map[string]interface{}

// Stat is one scalar entry of Stats.
type Stat struct {
	Key   string
	Value interface{}
}

// Scalars returns the top-level numbers and strings sorted by key.
func (s Stats) Scalars() []Stat {
	out := make([]Stat, 0, len(s))
	for k, v := range s {
		switch v.(type) {
		case float64, string, bool:
			out = append(out, Stat{Key: k, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// DashboardStats fetches the back-office summary.
func (c *Client) DashboardStats(ctx context.Context) (Stats, error) {
	var s Stats
	err := c.get(ctx, "admin.dashboard", "dashboard/statistics/", nil, &s)
	return s, err
}

// AdminQuery filters admin lists.
type AdminQuery struct {
	Search string
	Status string
	Page   int
}

func (q AdminQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Page > 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	return v
}

// VariantInput is a variant row in the product form.
type VariantInput struct {
	Size          string `json:"size"`
	Color         string `json:"color"`
	StockQuantity int    `json:"stock_quantity"`
}

// ProductInput is the admin product create/update payload.
type ProductInput struct {
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Price         decimal.Decimal     `json:"price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price"`
	CategoryID    int64               `json:"category_id"`
	IsActive      bool                `json:"is_active"`
	IsFeatured    bool                `json:"is_featured"`
	IsNew         bool                `json:"is_new"`
	Variants      []VariantInput      `json:"variants,omitempty"`
}

// AdminProducts lists products including inactive ones.
func (c *Client) AdminProducts(ctx context.Context, q AdminQuery) (List[Product], error) {
	var out List[Product]
	err := c.get(ctx, "admin.products", "admin/products/", q.values(), &out)
	return out, err
}

// AdminProduct fetches one product for editing.
func (c *Client) AdminProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := c.get(ctx, "admin.product", fmt.Sprintf("admin/products/%d/", id), nil, &p)
	return p, err
}

// CreateProduct adds a product.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	var p Product
	err := c.send(ctx, "admin.product_create", http.MethodPost, "admin/products/", in, &p)
	return p, err
}

// UpdateProduct replaces a product. Sending variants replaces all of them.
func (c *Client) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	var p Product
	err := c.send(ctx, "admin.product_update", http.MethodPut, fmt.Sprintf("admin/products/%d/", id), in, &p)
	return p, err
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.send(ctx, "admin.product_delete", http.MethodDelete, fmt.Sprintf("admin/products/%d/", id), nil, nil)
}

// AdminOrders lists all orders.
func (c *Client) AdminOrders(ctx context.Context, q AdminQuery) (List[Order], error) {
	var out List[Order]
	err := c.get(ctx, "admin.orders", "admin/orders/", q.values(), &out)
	return out, err
}

// UpdateOrderStatus sets an order's fulfilment and payment status.
// Empty values are left unchanged.
func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus, payment domain.PaymentStatus) error {
	body := map[string]string{}
	if status != "" {
		body["status"] = string(status)
	}
	if payment != "" {
		body["payment_status"] = string(payment)
	}
	return c.send(ctx, "admin.order_status", http.MethodPatch, fmt.Sprintf("admin/orders/%d/status/", id), body, nil)
}

// Users lists accounts.
func (c *Client) Users(ctx context.Context, q AdminQuery) (List[User], error) {
	var out List[User]
	err := c.get(ctx, "admin.users", "users/", q.values(), &out)
	return out, err
}

// SetUserActive activates or deactivates an account.
func (c *Client) SetUserActive(ctx context.Context, id int64, active bool) error {
	return c.send(ctx, "admin.user_status", http.MethodPatch, fmt.Sprintf("users/%d/status/", id), map[string]bool{"is_active": active}, nil)
}

// VariantStock is a variant with inventory figures.
type VariantStock struct {
	ID                int64           `json:"id"`
	Product           int64           `json:"product"`
	ProductName       string          `json:"product_name"`
	SKU               string          `json:"sku"`
	Size              string          `json:"size"`
	Color             string          `json:"color"`
	StockQuantity     int             `json:"stock_quantity"`
	ReservedQuantity  int             `json:"reserved_quantity"`
	AvailableQuantity int             `json:"available_quantity"`
	MinimumStock      int             `json:"minimum_stock"`
	ReorderPoint      int             `json:"reorder_point"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	TotalValue        decimal.Decimal `json:"total_value"`
	IsActive          bool            `json:"is_active"`
	IsLowStock        bool            `json:"is_low_stock"`
	NeedReorder       bool            `json:"need_reorder"`
}

// VariantDetail is the variant summary embedded in stock records.
type VariantDetail struct {
	ID                int64  `json:"id"`
	SKU               string `json:"sku"`
	ProductName       string `json:"product_name"`
	Size              string `json:"size"`
	Color             string `json:"color"`
	StockQuantity     int    `json:"stock_quantity"`
	AvailableQuantity int    `json:"available_quantity"`
}

// StockMovement is one stock history record.
type StockMovement struct {
	ID                     int64               `json:"id"`
	Variant                VariantDetail       `json:"product_variant_detail"`
	TransactionType        string              `json:"transaction_type"`
	TransactionTypeDisplay string              `json:"transaction_type_display"`
	Quantity               int                 `json:"quantity"`
	QuantityBefore         int                 `json:"quantity_before"`
	QuantityAfter          int                 `json:"quantity_after"`
	OrderID                *int64              `json:"order_id"`
	ReferenceNumber        string              `json:"reference_number"`
	CostPerItem            decimal.NullDecimal `json:"cost_per_item"`
	Notes                  string              `json:"notes"`
	CreatedByName          string              `json:"created_by_name"`
	CreatedAt              time.Time           `json:"created_at"`
}

// StockAlert flags a variant at or below its threshold.
type StockAlert struct {
	ID               int64         `json:"id"`
	Variant          VariantDetail `json:"product_variant_detail"`
	AlertType        string        `json:"alert_type"`
	AlertTypeDisplay string        `json:"alert_type_display"`
	CurrentQuantity  int           `json:"current_quantity"`
	Threshold        int           `json:"threshold"`
	IsResolved       bool          `json:"is_resolved"`
	ResolvedAt       *time.Time    `json:"resolved_at"`
	ResolvedByName   string        `json:"resolved_by_name"`
	CreatedAt        time.Time     `json:"created_at"`
}

// StockVariants lists variants with inventory figures.
func (c *Client) StockVariants(ctx context.Context, q AdminQuery) (List[VariantStock], error) {
	var out List[VariantStock]
	err := c.get(ctx, "admin.stock_variants", "admin/products/variants/", q.values(), &out)
	return out, err
}

// StockImport is a goods-received movement.
type StockImport struct {
	Quantity        int                 `json:"quantity"`
	CostPerItem     decimal.NullDecimal `json:"cost_per_item"`
	ReferenceNumber string              `json:"reference_number,omitempty"`
	Notes           string              `json:"notes,omitempty"`
}

// ImportStock records received goods.
func (c *Client) ImportStock(ctx context.Context, variantID int64, in StockImport) error {
	return c.stockMove(ctx, "admin.stock_import", variantID, "import", in)
}

// AdjustStock sets an absolute quantity after a count.
func (c *Client) AdjustStock(ctx context.Context, variantID int64, newQuantity int, reason string) error {
	return c.stockMove(ctx, "admin.stock_adjust", variantID, "adjust", map[string]interface{}{
		"new_quantity": newQuantity,
		"reason":       reason,
	})
}

// WriteOffDamaged removes damaged units.
func (c *Client) WriteOffDamaged(ctx context.Context, variantID int64, quantity int, reason string) error {
	return c.stockMove(ctx, "admin.stock_damaged", variantID, "damaged", map[string]interface{}{
		"quantity": quantity,
		"reason":   reason,
	})
}

// ReturnStock puts returned units back on the shelf.
func (c *Client) ReturnStock(ctx context.Context, variantID int64, quantity int, notes string) error {
	return c.stockMove(ctx, "admin.stock_return", variantID, "return", map[string]interface{}{
		"quantity": quantity,
		"notes":    notes,
	})
}

func (c *Client) stockMove(ctx context.Context, op string, variantID int64, kind string, body interface{}) error {
	return c.send(ctx, op, http.MethodPost, fmt.Sprintf("admin/stock/variants/%d/%s/", variantID, kind), body, nil)
}

// StockHistory lists stock movements.
func (c *Client) StockHistory(ctx context.Context, q AdminQuery) (List[StockMovement], error) {
	var out List[StockMovement]
	err := c.get(ctx, "admin.stock_history", "admin/stock/history/", q.values(), &out)
	return out, err
}

// StockAlerts lists stock alerts.
func (c *Client) StockAlerts(ctx context.Context, q AdminQuery) (List[StockAlert], error) {
	var out List[StockAlert]
	err := c.get(ctx, "admin.stock_alerts", "admin/stock/alerts/", q.values(), &out)
	return out, err
}

// ResolveStockAlert marks an alert handled.
func (c *Client) ResolveStockAlert(ctx context.Context, id int64) error {
	return c.send(ctx, "admin.stock_alert_resolve", http.MethodPost, fmt.Sprintf("admin/stock/alerts/%d/resolve/", id), struct{}{}, nil)
}
