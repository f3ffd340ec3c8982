// Package checkout drives the checkout wizard.
//
// The wizard is a small state machine. Each stage is its own type carrying
// exactly the data that is valid at that point, and every move between stages
// goes through Transition. Service wires the machine to the session store,
// the shop API and the division lookup.
package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/pricing"
)

// Source says where a basket came from.
type Source string

const (
	SourceCart   Source = "cart"
	SourceBuyNow Source = "buy_now"
)

// Basket is what is being bought.
type Basket struct {
	Source Source                 `json:"source"`
	Items  []pricing.LineItem     `json:"items"`
	Coupon *api.CouponApplication `json:"coupon,omitempty"`
}

// Empty reports whether there is nothing to buy.
func (b Basket) Empty() bool {
	return len(b.Items) == 0
}

// Discount is the coupon discount, zero without a coupon.
func (b Basket) Discount() decimal.Decimal {
	if b.Coupon == nil {
		return decimal.Zero
	}
	return b.Coupon.DiscountAmount
}

// Totals prices the basket.
func (b Basket) Totals(p pricing.Policy) pricing.Totals {
	return p.Totals(b.Items, b.Discount())
}

// Stage names a wizard step.
type Stage string

const (
	StageReviewingCart   Stage = "reviewing_cart"
	StageEnteringAddress Stage = "entering_address"
	StageChoosingPayment Stage = "choosing_payment"
	StageConfirmed       Stage = "confirmed"
)

// Step is the 1-based position shown in the progress indicator.
func (s Stage) Step() int {
	switch s {
	case StageReviewingCart:
		return 1
	case StageEnteringAddress:
		return 2
	case StageChoosingPayment:
		return 3
	case StageConfirmed:
		return 4
	}
	return 0
}

// State is one of ReviewingCart, EnteringAddress, ChoosingPayment or Confirmed.
type State interface {
	Stage() Stage
	state()
}

// ReviewingCart shows the basket and totals.
type ReviewingCart struct {
	Basket Basket `json:"basket"`
}

// EnteringAddress collects the shipping address. Draft pre-fills the form
// when the shopper comes back from the payment step.
type EnteringAddress struct {
	Basket Basket       `json:"basket"`
	Draft  *AddressForm `json:"draft,omitempty"`
}

// ChoosingPayment holds a validated address and, while the wallet QR flow
// is running, its progress.
type ChoosingPayment struct {
	Basket  Basket          `json:"basket"`
	Address ShippingAddress `json:"address"`
	Wallet  *WalletFlow     `json:"wallet,omitempty"`

	// AttemptKey identifies this order attempt to the shop API so a
	// resubmitted form cannot create a second order.
	AttemptKey string `json:"attempt_key"`
}

// Confirmed is terminal: the order exists.
type Confirmed struct {
	Source   Source         `json:"source"`
	Order    api.Order      `json:"order"`
	Totals   pricing.Totals `json:"totals"`
	Warnings []string       `json:"warnings,omitempty"`
}

func (ReviewingCart) Stage() Stage   { return StageReviewingCart }
func (EnteringAddress) Stage() Stage { return StageEnteringAddress }
func (ChoosingPayment) Stage() Stage { return StageChoosingPayment }
func (Confirmed) Stage() Stage       { return StageConfirmed }

func (ReviewingCart) state()   {}
func (EnteringAddress) state() {}
func (ChoosingPayment) state() {}
func (Confirmed) state()       {}

// BasketOf returns the basket of an in-progress state.
func BasketOf(s State) (Basket, bool) {
	switch st := s.(type) {
	case ReviewingCart:
		return st.Basket, true
	case EnteringAddress:
		return st.Basket, true
	case ChoosingPayment:
		return st.Basket, true
	}
	return Basket{}, false
}
