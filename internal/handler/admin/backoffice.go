package admin

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/telemetry"
)

// BackOffice is the slice of the shop API the admin screens use.
type BackOffice interface {
	DashboardStats(ctx context.Context) (api.Stats, error)

	Categories(ctx context.Context) ([]api.Category, error)
	AdminProducts(ctx context.Context, q api.AdminQuery) (api.List[api.Product], error)
	AdminProduct(ctx context.Context, id int64) (api.Product, error)
	CreateProduct(ctx context.Context, in api.ProductInput) (api.Product, error)
	UpdateProduct(ctx context.Context, id int64, in api.ProductInput) (api.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	AdminOrders(ctx context.Context, q api.AdminQuery) (api.List[api.Order], error)
	UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus, payment domain.PaymentStatus) error

	Users(ctx context.Context, q api.AdminQuery) (api.List[api.User], error)
	SetUserActive(ctx context.Context, id int64, active bool) error

	StockVariants(ctx context.Context, q api.AdminQuery) (api.List[api.VariantStock], error)
	ImportStock(ctx context.Context, variantID int64, in api.StockImport) error
	AdjustStock(ctx context.Context, variantID int64, newQuantity int, reason string) error
	WriteOffDamaged(ctx context.Context, variantID int64, quantity int, reason string) error
	ReturnStock(ctx context.Context, variantID int64, quantity int, notes string) error
	StockHistory(ctx context.Context, q api.AdminQuery) (api.List[api.StockMovement], error)
	StockAlerts(ctx context.Context, q api.AdminQuery) (api.List[api.StockAlert], error)
	ResolveStockAlert(ctx context.Context, id int64) error
}

var _ BackOffice = (*api.Client)(nil)

// listQuery reads search, status and page from the query string.
func listQuery(r *http.Request) api.AdminQuery {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	return api.AdminQuery{
		Search: strings.TrimSpace(q.Get("search")),
		Status: q.Get("status"),
		Page:   page,
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NotFound("admin.path", name, r.PathValue(name))
	}
	return id, nil
}

func recordAction(action string) {
	if telemetry.Business != nil {
		telemetry.Business.AdminActions.WithLabelValues(action).Inc()
	}
}
