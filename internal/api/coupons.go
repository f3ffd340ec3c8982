package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/atelier/internal/domain"
)

// Coupon wallet tabs.
const (
	CouponsAvailable = "available"
	CouponsUsed      = "used"
	CouponsExpired   = "expired"
)

// Coupons lists the shopper's wallet filtered by status.
func (c *Client) Coupons(ctx context.Context, status string) ([]Coupon, error) {
	var q url.Values
	if status != "" {
		q = url.Values{"status": []string{status}}
	}
	var out List[Coupon]
	err := c.get(ctx, "coupon.list", "coupons/", q, &out)
	return out.Results, err
}

// ApplyCoupon asks the API to price a coupon against a subtotal.
// Field-level rejections are reported as a business rule message.
func (c *Client) ApplyCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (CouponApplication, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return CouponApplication{}, domain.NewValidationError("coupon.apply", "coupon_code", "Enter a coupon code.")
	}

	var resp struct {
		DiscountAmount decimal.Decimal `json:"discount_amount"`
		FinalAmount    decimal.Decimal `json:"final_amount"`
		Coupon         struct {
			Code string `json:"code"`
			Name string `json:"name"`
		} `json:"coupon"`
	}
	err := c.send(ctx, "coupon.apply", http.MethodPost, "coupons/apply/", map[string]interface{}{
		"coupon_code":  code,
		"order_amount": subtotal,
	}, &resp)
	if err != nil {
		if fields := domain.GetValidationFields(err); len(fields) > 0 {
			msg := fields["coupon_code"]
			if msg == "" {
				msg = fields["order_amount"]
			}
			if msg != "" {
				return CouponApplication{}, domain.Conflict("coupon.apply", msg)
			}
		}
		return CouponApplication{}, err
	}

	app := CouponApplication{
		Code:           code,
		Name:           resp.Coupon.Name,
		DiscountAmount: resp.DiscountAmount,
		FinalAmount:    resp.FinalAmount,
		Subtotal:       subtotal,
	}
	if resp.Coupon.Code != "" {
		app.Code = resp.Coupon.Code
	}
	return app, nil
}
