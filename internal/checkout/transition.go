package checkout

import (
	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/pricing"
)

// ErrIllegalTransition is returned for an event the current stage does not accept.
var ErrIllegalTransition = &domain.Error{
	Code:    domain.ECONFLICT,
	Op:      "checkout.transition",
	Message: "That checkout step isn't available right now.",
}

// ErrEmptyBasket is returned when proceeding with nothing to buy.
var ErrEmptyBasket = &domain.Error{
	Code:    domain.EINVALID,
	Op:      "checkout.transition",
	Message: "Your basket is empty.",
}

// Event moves the wizard.
type Event interface {
	event()
}

// Proceed leaves the basket review.
type Proceed struct{}

// SubmitAddress carries a validated, resolved address.
type SubmitAddress struct {
	Address    ShippingAddress
	AttemptKey string
}

// Back returns to the previous step.
type Back struct{}

// SetCoupon applies or, with a nil coupon, removes a coupon.
type SetCoupon struct {
	Coupon *api.CouponApplication
}

// SetWallet records wallet flow progress. A nil Wallet cancels the flow.
type SetWallet struct {
	Wallet *WalletFlow
}

// Reprice swaps in a freshly priced basket before payment.
type Reprice struct {
	Basket Basket
}

// OrderPlaced records the created order.
type OrderPlaced struct {
	Order    api.Order
	Totals   pricing.Totals
	Warnings []string
}

func (Proceed) event()       {}
func (SubmitAddress) event() {}
func (Back) event()          {}
func (SetCoupon) event()     {}
func (SetWallet) event()     {}
func (Reprice) event()       {}
func (OrderPlaced) event()   {}

// Transition returns the state that follows s on e. It never mutates s.
func Transition(s State, e Event) (State, error) {
	switch st := s.(type) {
	case ReviewingCart:
		switch ev := e.(type) {
		case Proceed:
			if st.Basket.Empty() {
				return nil, ErrEmptyBasket
			}
			return EnteringAddress{Basket: st.Basket}, nil
		case SetCoupon:
			st.Basket.Coupon = ev.Coupon
			return st, nil
		}

	case EnteringAddress:
		switch ev := e.(type) {
		case SubmitAddress:
			return ChoosingPayment{Basket: st.Basket, Address: ev.Address, AttemptKey: ev.AttemptKey}, nil
		case Back:
			return ReviewingCart{Basket: st.Basket}, nil
		case SetCoupon:
			st.Basket.Coupon = ev.Coupon
			return st, nil
		}

	case ChoosingPayment:
		switch ev := e.(type) {
		case Back:
			draft := st.Address.Form
			return EnteringAddress{Basket: st.Basket, Draft: &draft}, nil
		case SetCoupon:
			// The amount changed, so any QR code already shown is stale.
			st.Basket.Coupon = ev.Coupon
			st.Wallet = nil
			return st, nil
		case SetWallet:
			st.Wallet = ev.Wallet
			return st, nil
		case Reprice:
			st.Basket = ev.Basket
			st.Wallet = nil
			return st, nil
		case OrderPlaced:
			return Confirmed{
				Source:   st.Basket.Source,
				Order:    ev.Order,
				Totals:   ev.Totals,
				Warnings: ev.Warnings,
			}, nil
		}
	}
	return nil, ErrIllegalTransition
}
