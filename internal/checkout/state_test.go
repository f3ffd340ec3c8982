package checkout

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/atelier/internal/address"
	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/pricing"
)

func line(variantID int64, price int64, qty int) pricing.LineItem {
	p := decimal.NewFromInt(price)
	return pricing.LineItem{VariantID: variantID, ProductName: "Linen shirt", BasePrice: p, UnitPrice: p, Quantity: qty}
}

func sampleBasket() Basket {
	return Basket{Source: SourceCart, Items: []pricing.LineItem{line(1, 100000, 2)}}
}

func sampleAddress() ShippingAddress {
	return ShippingAddress{
		Form: AddressForm{
			FullName:     "Nguyen Van An",
			PhoneNumber:  "0901234567",
			ProvinceCode: 1,
			DistrictCode: 1,
			WardCode:     1,
			Detail:       "12 Ly Thuong Kiet",
		},
		Names: address.Names{Province: "Thành phố Hà Nội", District: "Quận Ba Đình", Ward: "Phường Phúc Xá"},
	}
}

func TestTransition(t *testing.T) {
	basket := sampleBasket()
	coupon := &api.CouponApplication{Code: "SALE20", DiscountAmount: decimal.NewFromInt(20000)}
	paying := ChoosingPayment{Basket: basket, Address: sampleAddress(), Wallet: &WalletFlow{Reference: "r"}}

	tests := []struct {
		name    string
		from    State
		event   Event
		want    Stage
		wantErr error
	}{
		{"proceed from review", ReviewingCart{Basket: basket}, Proceed{}, StageEnteringAddress, nil},
		{"proceed with empty basket", ReviewingCart{}, Proceed{}, "", ErrEmptyBasket},
		{"coupon during review", ReviewingCart{Basket: basket}, SetCoupon{Coupon: coupon}, StageReviewingCart, nil},
		{"submit address", EnteringAddress{Basket: basket}, SubmitAddress{Address: sampleAddress()}, StageChoosingPayment, nil},
		{"back to review", EnteringAddress{Basket: basket}, Back{}, StageReviewingCart, nil},
		{"back to address", paying, Back{}, StageEnteringAddress, nil},
		{"place order", paying, OrderPlaced{Order: api.Order{ID: 7}}, StageConfirmed, nil},
		{"place order while entering address", EnteringAddress{Basket: basket}, OrderPlaced{}, "", ErrIllegalTransition},
		{"back from review", ReviewingCart{Basket: basket}, Back{}, "", ErrIllegalTransition},
		{"wallet before payment step", ReviewingCart{Basket: basket}, SetWallet{}, "", ErrIllegalTransition},
		{"reprice at payment", paying, Reprice{Basket: basket}, StageChoosingPayment, nil},
		{"reprice during review", ReviewingCart{Basket: basket}, Reprice{Basket: basket}, "", ErrIllegalTransition},
		{"anything after confirmation", Confirmed{}, Back{}, "", ErrIllegalTransition},
		{"no state", nil, Proceed{}, "", ErrIllegalTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.from, tt.event)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Stage())
		})
	}
}

func TestTransition_BackKeepsDraft(t *testing.T) {
	from := ChoosingPayment{Basket: sampleBasket(), Address: sampleAddress()}

	got, err := Transition(from, Back{})
	require.NoError(t, err)

	ea := got.(EnteringAddress)
	require.NotNil(t, ea.Draft)
	assert.Equal(t, "Nguyen Van An", ea.Draft.FullName)
	assert.Equal(t, from.Basket, ea.Basket)
}

func TestTransition_CouponClearsWallet(t *testing.T) {
	from := ChoosingPayment{Basket: sampleBasket(), Wallet: &WalletFlow{Reference: "r"}}

	got, err := Transition(from, SetCoupon{Coupon: &api.CouponApplication{Code: "X"}})
	require.NoError(t, err)

	cp := got.(ChoosingPayment)
	assert.Nil(t, cp.Wallet)
	assert.Equal(t, "X", cp.Basket.Coupon.Code)
	assert.NotNil(t, from.Wallet, "input state must not change")
}

func TestTransition_ConfirmedCarriesSource(t *testing.T) {
	b := sampleBasket()
	b.Source = SourceBuyNow
	got, err := Transition(ChoosingPayment{Basket: b}, OrderPlaced{Order: api.Order{ID: 3}, Warnings: []string{"w"}})
	require.NoError(t, err)

	c := got.(Confirmed)
	assert.Equal(t, SourceBuyNow, c.Source)
	assert.Equal(t, int64(3), c.Order.ID)
	assert.Equal(t, []string{"w"}, c.Warnings)
}

func TestBasketTotals(t *testing.T) {
	b := sampleBasket()
	b.Coupon = &api.CouponApplication{DiscountAmount: decimal.NewFromInt(50000)}

	got := b.Totals(pricing.DefaultPolicy())
	assert.True(t, decimal.NewFromInt(200000).Equal(got.Subtotal))
	assert.True(t, decimal.NewFromInt(30000).Equal(got.Shipping))
	assert.True(t, decimal.NewFromInt(180000).Equal(got.Total))
}

func TestStageStep(t *testing.T) {
	assert.Equal(t, 1, StageReviewingCart.Step())
	assert.Equal(t, 4, StageConfirmed.Step())
	assert.Equal(t, 0, Stage("bogus").Step())
}

func TestCodec_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	states := []State{
		ReviewingCart{Basket: sampleBasket()},
		EnteringAddress{Basket: sampleBasket(), Draft: &AddressForm{FullName: "An"}},
		ChoosingPayment{
			Basket:     sampleBasket(),
			Address:    sampleAddress(),
			Wallet:     StartWallet("ref-1", decimal.NewFromInt(230000), now, 5*time.Minute, 3*time.Second),
			AttemptKey: "key-1",
		},
		Confirmed{Source: SourceCart, Order: api.Order{ID: 42, Status: domain.OrderPending}},
	}

	for _, st := range states {
		t.Run(string(st.Stage()), func(t *testing.T) {
			raw, err := Encode(st)
			require.NoError(t, err)

			got, err := Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, st.Stage(), got.Stage())

			again, err := Encode(got)
			require.NoError(t, err)
			assert.JSONEq(t, string(raw), string(again))
		})
	}
}

func TestCodec_Empty(t *testing.T) {
	for _, raw := range []string{"", "null"} {
		st, err := Decode([]byte(raw))
		assert.NoError(t, err)
		assert.Nil(t, st)
	}

	raw, err := Encode(nil)
	assert.NoError(t, err)
	assert.Nil(t, raw)
}

func TestCodec_UnknownStage(t *testing.T) {
	_, err := Decode([]byte(`{"stage":"shipping","data":{}}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}
