package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/pricing"
)

// Tokens is the credential pair issued at login.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// User is the signed-in account.
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	PhoneNumber string     `json:"phone_number"`
	IsActive    bool       `json:"is_active"`
	IsAdmin     bool       `json:"is_admin"`
	IsStaff     bool       `json:"is_staff"`
	DateJoined  time.Time  `json:"date_joined"`
	LastLogin   *time.Time `json:"last_login"`
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	}
	return u.Username
}

// Category groups products.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProductImage is one gallery image.
type ProductImage struct {
	ID     int64  `json:"id"`
	Image  string `json:"image"`
	IsMain bool   `json:"is_main"`
}

// Variant is a purchasable size/color combination.
type Variant struct {
	ID                int64               `json:"id"`
	SKU               string              `json:"sku"`
	Size              string              `json:"size"`
	Color             string              `json:"color"`
	StockQuantity     int                 `json:"stock_quantity"`
	AvailableQuantity *int                `json:"available_quantity"`
	ProductName       string              `json:"product_name"`
	ProductPrice      decimal.NullDecimal `json:"product_price"`
}

// Available returns the sellable quantity, preferring the reservation-aware figure.
func (v Variant) Available() int {
	if v.AvailableQuantity != nil {
		return *v.AvailableQuantity
	}
	return v.StockQuantity
}

// Product is a catalog entry.
type Product struct {
	ID            int64               `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Price         decimal.NullDecimal `json:"price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price"`
	Category      *Category           `json:"category"`
	Variants      []Variant           `json:"variants"`
	Images        []ProductImage      `json:"images"`
	IsActive      bool                `json:"is_active"`
	IsFeatured    bool                `json:"is_featured"`
	IsNew         bool                `json:"is_new"`
	CreatedAt     time.Time           `json:"created_at"`
}

// UnitPrice is the price a shopper pays for one unit.
func (p Product) UnitPrice() decimal.Decimal {
	return pricing.ResolveUnitPrice(p.DiscountPrice, p.Price)
}

// BasePrice is the list price, zero when absent.
func (p Product) BasePrice() decimal.Decimal {
	if p.Price.Valid {
		return p.Price.Decimal
	}
	return decimal.Zero
}

// OnSale reports whether a discount applies.
func (p Product) OnSale() bool {
	return p.UnitPrice().LessThan(p.BasePrice())
}

// MainImage returns the preferred image URL or "".
func (p Product) MainImage() string {
	for _, img := range p.Images {
		if img.IsMain {
			return img.Image
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].Image
	}
	return ""
}

// Variant looks up a variant by id.
func (p Product) Variant(id int64) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// BuyNowLine builds the normalized line for an immediate purchase of one variant.
func BuyNowLine(p Product, variantID int64, qty int) (pricing.LineItem, error) {
	v, ok := p.Variant(variantID)
	if !ok {
		return pricing.LineItem{}, domain.Invalid("product.buy_now", "Please choose a size and color.")
	}
	if qty < 1 {
		return pricing.LineItem{}, domain.Invalid("product.buy_now", "Quantity must be at least 1.")
	}
	if qty > v.Available() {
		return pricing.LineItem{}, domain.Conflict("product.buy_now", "Not enough stock for the selected variant.")
	}
	return pricing.LineItem{
		VariantID:   v.ID,
		ProductID:   p.ID,
		ProductName: p.Name,
		Size:        v.Size,
		Color:       v.Color,
		ImageURL:    p.MainImage(),
		BasePrice:   p.BasePrice(),
		UnitPrice:   p.UnitPrice(),
		Quantity:    qty,
	}, nil
}

// CartVariant is the variant as embedded in a cart item.
type CartVariant struct {
	ID            int64   `json:"id"`
	Size          string  `json:"size"`
	Color         string  `json:"color"`
	StockQuantity int     `json:"stock_quantity"`
	Product       Product `json:"product"`
}

// CartItem is one persisted cart row.
type CartItem struct {
	ID               int64       `json:"id"`
	ProductVariant   CartVariant `json:"product_variant"`
	ProductVariantID int64       `json:"product_variant_id"`
	Quantity         int         `json:"quantity"`
}

// LineItem normalizes the cart row.
func (ci CartItem) LineItem() pricing.LineItem {
	p := ci.ProductVariant.Product
	variantID := ci.ProductVariant.ID
	if variantID == 0 {
		variantID = ci.ProductVariantID
	}
	return pricing.LineItem{
		VariantID:   variantID,
		ProductID:   p.ID,
		ProductName: p.Name,
		Size:        ci.ProductVariant.Size,
		Color:       ci.ProductVariant.Color,
		ImageURL:    p.MainImage(),
		BasePrice:   p.BasePrice(),
		UnitPrice:   p.UnitPrice(),
		Quantity:    ci.Quantity,
	}
}

// Cart is the signed-in shopper's persisted cart.
type Cart struct {
	ID    int64      `json:"id"`
	Items []CartItem `json:"items"`
}

// Lines normalizes every cart row.
func (c Cart) Lines() []pricing.LineItem {
	lines := make([]pricing.LineItem, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, it.LineItem())
	}
	return lines
}

// Count is the number of units in the cart.
func (c Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Quantity returns how many units of a variant are in the cart.
func (c Cart) Quantity(variantID int64) int {
	for _, it := range c.Items {
		if it.ProductVariant.ID == variantID || it.ProductVariantID == variantID {
			return it.Quantity
		}
	}
	return 0
}

// OrderVariant is the variant summary inside an order item.
type OrderVariant struct {
	ID          int64  `json:"id"`
	Size        string `json:"size"`
	Color       string `json:"color"`
	ProductName string `json:"product_name"`
	Image       string `json:"image"`
}

// OrderItem is one order row with its frozen price.
type OrderItem struct {
	ID             int64           `json:"id"`
	ProductVariant OrderVariant    `json:"product_variant"`
	Quantity       int             `json:"quantity"`
	PricePerItem   decimal.Decimal `json:"price_per_item"`
	TotalPrice     decimal.Decimal `json:"total_price"`
}

// CouponInfo summarizes the coupon used on an order.
type CouponInfo struct {
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// OrderUser is the customer summary included for admins.
type OrderUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Order is a placed order as reported by the API.
type Order struct {
	ID                 int64                `json:"id"`
	User               *OrderUser           `json:"user"`
	UserName           string               `json:"user_name"`
	UserEmail          string               `json:"user_email"`
	TotalPrice         decimal.Decimal      `json:"total_price"`
	DiscountAmount     decimal.NullDecimal  `json:"discount_amount"`
	Status             domain.OrderStatus   `json:"status"`
	PaymentStatus      domain.PaymentStatus `json:"payment_status"`
	PaymentMethod      string               `json:"payment_method"`
	ShippingName       string               `json:"shipping_name"`
	ShippingAddress    string               `json:"shipping_address"`
	ShippingCity       string               `json:"shipping_city"`
	ShippingPostalCode string               `json:"shipping_postal_code"`
	ShippingCountry    string               `json:"shipping_country"`
	PhoneNumber        string               `json:"phone_number"`
	Notes              string               `json:"notes"`
	Items              []OrderItem          `json:"items"`
	TotalItems         int                  `json:"total_items"`
	CouponInfo         *CouponInfo          `json:"coupon_info"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// EstimatedDelivery is the expected delivery date, if the order is still moving.
func (o Order) EstimatedDelivery() (time.Time, bool) {
	return o.Status.EstimatedDelivery(o.CreatedAt)
}

// OrderLine is an ad-hoc item for direct order creation.
type OrderLine struct {
	ProductVariantID int64 `json:"product_variant_id"`
	Quantity         int   `json:"quantity"`
}

// CreateOrderRequest is the body of orders/create/.
// Items is only sent by the direct buy-now path; otherwise the API uses the cart.
type CreateOrderRequest struct {
	ShippingName       string      `json:"shipping_name"`
	ShippingAddress    string      `json:"shipping_address"`
	ShippingCity       string      `json:"shipping_city"`
	ShippingPostalCode string      `json:"shipping_postal_code"`
	ShippingCountry    string      `json:"shipping_country"`
	PhoneNumber        string      `json:"phone_number"`
	Notes              string      `json:"notes,omitempty"`
	CouponCode         string      `json:"coupon_code,omitempty"`
	PaymentMethod      string      `json:"payment_method"`
	Items              []OrderLine `json:"items,omitempty"`
}

// Coupon is a coupon held in the shopper's wallet.
type Coupon struct {
	CouponCode        string              `json:"coupon_code"`
	CouponName        string              `json:"coupon_name"`
	CouponDescription string              `json:"coupon_description"`
	CouponType        string              `json:"coupon_type"`
	DiscountValue     decimal.Decimal     `json:"discount_value"`
	MaxDiscountAmount decimal.NullDecimal `json:"max_discount_amount"`
	MinPurchaseAmount decimal.NullDecimal `json:"min_purchase_amount"`
	ValidFrom         time.Time           `json:"valid_from"`
	ValidTo           time.Time           `json:"valid_to"`
	IsUsed            bool                `json:"is_used"`
	DaysRemaining     int                 `json:"days_remaining"`
}

// Percentage reports whether the coupon discounts by percent.
func (c Coupon) Percentage() bool {
	return c.CouponType == "percentage"
}

// CouponApplication is the server's verdict on a coupon for a subtotal.
type CouponApplication struct {
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

// WishlistItem is a saved product.
type WishlistItem struct {
	ID        int64     `json:"id"`
	Product   Product   `json:"product"`
	CreatedAt time.Time `json:"created_at"`
}

// Review is a product review.
type Review struct {
	ID            int64     `json:"id"`
	Product       int64     `json:"product"`
	ProductName   string    `json:"product_name"`
	Order         *int64    `json:"order"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
	UserName      string    `json:"user_name"`
	UserFirstName string    `json:"user_first_name"`
	UserLastName  string    `json:"user_last_name"`
	CreatedAt     time.Time `json:"created_at"`
}

// Author is the reviewer's display name.
func (r Review) Author() string {
	if r.UserFirstName != "" {
		return r.UserFirstName + " " + r.UserLastName
	}
	return r.UserName
}

// ReviewStats is the rating summary of a product.
type ReviewStats struct {
	AverageRating      float64        `json:"average_rating"`
	TotalReviews       int            `json:"total_reviews"`
	RatingDistribution map[string]int `json:"rating_distribution"`
}
