package checkout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/atelier/internal/address"
	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/events"
	"github.com/dukerupert/atelier/internal/pricing"
	"github.com/dukerupert/atelier/internal/session"
)

// Service errors.
var (
	ErrNothingToCheckout = &domain.Error{Code: domain.EINVALID, Op: "checkout.begin", Message: "There is nothing to check out."}
	ErrNoCheckout        = &domain.Error{Code: domain.ENOTFOUND, Op: "checkout.load", Message: "No checkout in progress."}
	ErrWalletNotVerified = &domain.Error{Code: domain.ECONFLICT, Op: "checkout.place", Message: "Please complete the e-wallet payment first."}
	ErrCouponNoLonger    = &domain.Error{Code: domain.ECONFLICT, Op: "checkout.place", Message: "Your basket changed and the coupon no longer applies. It has been removed."}
	ErrWalletStale       = &domain.Error{Code: domain.ECONFLICT, Op: "checkout.place", Message: "Your total changed since the QR code was issued. Please pay with a new code."}
)

// CouponAPI prices coupons.
type CouponAPI interface {
	ApplyCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (api.CouponApplication, error)
}

// Metrics records wizard progress.
type Metrics interface {
	CheckoutStarted(source string)
	CheckoutStep(stage string)
	CheckoutCompleted(source, method string)
	CheckoutFailed(reason string)
}

type noopMetrics struct{}

func (noopMetrics) CheckoutStarted(string)           {}
func (noopMetrics) CheckoutStep(string)              {}
func (noopMetrics) CheckoutCompleted(string, string) {}
func (noopMetrics) CheckoutFailed(string)            {}

// Config holds wizard settings.
type Config struct {
	Policy            pricing.Policy
	WalletQRTTL       time.Duration
	WalletVerifyDelay time.Duration
	BuyNowTTL         time.Duration
}

// Deps are the Service's collaborators.
type Deps struct {
	Sessions     session.Store
	Orders       OrderAPI
	Coupons      CouponAPI
	Addresses    address.Resolver
	CartPlacer   OrderPlacer
	BuyNowPlacer OrderPlacer
	Bus          events.Bus
	Metrics      Metrics
	Logger       *slog.Logger
}

// Service runs checkouts. Remote calls happen outside session updates; the
// session update then re-applies the transition to the freshest state.
type Service struct {
	Deps
	cfg   Config
	now   func() time.Time
	group singleflight.Group
}

// NewService creates a checkout service.
func NewService(deps Deps, cfg Config) *Service {
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if cfg.Policy.FreeShippingThreshold.IsZero() {
		cfg.Policy = pricing.DefaultPolicy()
	}
	if cfg.WalletQRTTL == 0 {
		cfg.WalletQRTTL = 5 * time.Minute
	}
	if cfg.WalletVerifyDelay == 0 {
		cfg.WalletVerifyDelay = 3 * time.Second
	}
	return &Service{Deps: deps, cfg: cfg, now: time.Now}
}

// Policy returns the shipping policy in use.
func (s *Service) Policy() pricing.Policy {
	return s.cfg.Policy
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// Current returns the session's checkout state.
func (s *Service) Current(ctx context.Context, sid string) (State, error) {
	sess, err := s.Sessions.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	st, err := Decode(sess.Checkout)
	if err != nil {
		s.Logger.Warn("discarding unreadable checkout state", slog.String("error", err.Error()))
		return nil, ErrNoCheckout
	}
	if st == nil {
		return nil, ErrNoCheckout
	}
	return st, nil
}

// Begin starts a checkout. The buy-now path uses only the session snapshot
// and never reads or changes the cart. The cart path drops any stale
// buy-now snapshot.
func (s *Service) Begin(ctx context.Context, sid string, buyNow bool) (State, error) {
	var basket Basket

	if buyNow {
		sess, err := s.Sessions.Get(ctx, sid)
		if err != nil {
			return nil, err
		}
		snap, ok := sess.ActiveBuyNow(s.now(), s.cfg.BuyNowTTL)
		if !ok {
			return nil, ErrNothingToCheckout
		}
		basket = Basket{Source: SourceBuyNow, Items: snap.Items}
	} else {
		cart, err := s.Orders.Cart(ctx)
		if err != nil {
			return nil, err
		}
		lines := cart.Lines()
		if len(lines) == 0 {
			return nil, ErrNothingToCheckout
		}
		basket = Basket{Source: SourceCart, Items: lines}
	}

	next := ReviewingCart{Basket: basket}
	_, err := s.mutate(ctx, sid, func(sess *session.Session, _ State) (State, error) {
		if !buyNow {
			sess.BuyNow = nil
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.CheckoutStarted(string(basket.Source))
	s.Metrics.CheckoutStep(string(StageReviewingCart))
	return next, nil
}

// Advance applies a local event.
func (s *Service) Advance(ctx context.Context, sid string, ev Event) (State, error) {
	st, err := s.mutate(ctx, sid, func(_ *session.Session, cur State) (State, error) {
		if cur == nil {
			return nil, ErrNoCheckout
		}
		return Transition(cur, ev)
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.CheckoutStep(string(st.Stage()))
	return st, nil
}

// SubmitAddress validates the form, resolves division names and moves to payment.
func (s *Service) SubmitAddress(ctx context.Context, sid string, f AddressForm) (State, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	names, err := s.Addresses.Resolve(ctx, f.ProvinceCode, f.DistrictCode, f.WardCode)
	if err != nil {
		return nil, err
	}
	return s.Advance(ctx, sid, SubmitAddress{
		Address:    ShippingAddress{Form: f, Names: names},
		AttemptKey: uuid.NewString(),
	})
}

// ApplyCoupon asks the API to price code against the basket subtotal.
func (s *Service) ApplyCoupon(ctx context.Context, sid, code string) (State, error) {
	cur, err := s.Current(ctx, sid)
	if err != nil {
		return nil, err
	}
	basket, ok := BasketOf(cur)
	if !ok {
		return nil, ErrIllegalTransition
	}
	app, err := s.Coupons.ApplyCoupon(ctx, code, pricing.Subtotal(basket.Items))
	if err != nil {
		return nil, err
	}
	return s.Advance(ctx, sid, SetCoupon{Coupon: &app})
}

// RemoveCoupon drops the applied coupon.
func (s *Service) RemoveCoupon(ctx context.Context, sid string) (State, error) {
	return s.Advance(ctx, sid, SetCoupon{})
}

// StartWallet issues a QR code for the current total.
func (s *Service) StartWallet(ctx context.Context, sid string) (State, error) {
	cur, err := s.Current(ctx, sid)
	if err != nil {
		return nil, err
	}
	cp, ok := cur.(ChoosingPayment)
	if !ok {
		return nil, ErrIllegalTransition
	}
	total := cp.Basket.Totals(s.cfg.Policy).Total
	flow := StartWallet(uuid.NewString(), total, s.now(), s.cfg.WalletQRTTL, s.cfg.WalletVerifyDelay)
	return s.Advance(ctx, sid, SetWallet{Wallet: flow})
}

// ConfirmWallet records that the shopper says they paid.
func (s *Service) ConfirmWallet(ctx context.Context, sid string) (State, error) {
	cur, err := s.Current(ctx, sid)
	if err != nil {
		return nil, err
	}
	cp, ok := cur.(ChoosingPayment)
	if !ok || cp.Wallet == nil {
		return nil, ErrIllegalTransition
	}
	flow, err := cp.Wallet.Confirm(s.now())
	if err != nil {
		return nil, err
	}
	return s.Advance(ctx, sid, SetWallet{Wallet: flow})
}

// CancelWallet abandons the QR flow.
func (s *Service) CancelWallet(ctx context.Context, sid string) (State, error) {
	return s.Advance(ctx, sid, SetWallet{})
}

// PlaceOrder creates the order. Concurrent calls for one session share a
// single placement, and a call after confirmation returns the existing
// order without contacting the API.
func (s *Service) PlaceOrder(ctx context.Context, sid string, method domain.PaymentMethod) (Confirmed, error) {
	v, err, _ := s.group.Do(sid, func() (interface{}, error) {
		return s.placeOrder(ctx, sid, method)
	})
	if err != nil {
		return Confirmed{}, err
	}
	return v.(Confirmed), nil
}

func (s *Service) placeOrder(ctx context.Context, sid string, method domain.PaymentMethod) (Confirmed, error) {
	const op = "checkout.place"

	cur, err := s.Current(ctx, sid)
	if err != nil {
		return Confirmed{}, err
	}
	if done, ok := cur.(Confirmed); ok {
		return done, nil
	}
	cp, ok := cur.(ChoosingPayment)
	if !ok {
		return Confirmed{}, ErrIllegalTransition
	}
	if !method.Valid() {
		return Confirmed{}, domain.NewValidationError(op, "payment_method", "Choose a payment method.")
	}
	if method == domain.PaymentWallet {
		if cp.Wallet == nil || cp.Wallet.Status(s.now()) != WalletVerified {
			return Confirmed{}, ErrWalletNotVerified
		}
	}

	basket, err := s.refreshBasket(ctx, sid, cp.Basket)
	if err != nil {
		s.Metrics.CheckoutFailed(domain.ErrorCode(err))
		return Confirmed{}, err
	}
	if method == domain.PaymentWallet {
		if total := basket.Totals(s.cfg.Policy).Total; !total.Equal(cp.Wallet.Amount) {
			if _, err := s.mutate(ctx, sid, func(_ *session.Session, cur State) (State, error) {
				if cur == nil {
					return nil, ErrNoCheckout
				}
				return Transition(cur, Reprice{Basket: basket})
			}); err != nil {
				s.Logger.Warn("failed to store repriced basket", slog.String("error", err.Error()))
			}
			s.Logger.Info("wallet amount stale",
				slog.String("paid", cp.Wallet.Amount.String()),
				slog.String("total", total.String()))
			s.Metrics.CheckoutFailed(domain.ECONFLICT)
			return Confirmed{}, ErrWalletStale
		}
	}

	placer := s.CartPlacer
	if basket.Source == SourceBuyNow {
		placer = s.BuyNowPlacer
	}
	placed, err := placer.Place(ctx, Placement{
		Request:        s.orderRequest(cp, basket, method),
		Basket:         basket,
		IdempotencyKey: cp.AttemptKey,
	})
	if err != nil {
		s.Metrics.CheckoutFailed(domain.ErrorCode(err))
		return Confirmed{}, err
	}

	ev := OrderPlaced{Order: placed.Order, Totals: basket.Totals(s.cfg.Policy), Warnings: placed.Warnings}
	// The order exists whatever the stored state now says.
	confirmed := Confirmed{Source: basket.Source, Order: ev.Order, Totals: ev.Totals, Warnings: ev.Warnings}
	_, err = s.mutate(context.WithoutCancel(ctx), sid, func(sess *session.Session, latest State) (State, error) {
		if basket.Source == SourceBuyNow {
			sess.BuyNow = nil
		}
		if latest != nil {
			if next, err := Transition(latest, ev); err == nil {
				return next, nil
			}
		}
		return confirmed, nil
	})
	if err != nil {
		s.Logger.Error("order placed but session update failed",
			slog.Int64("order_id", placed.Order.ID),
			slog.String("error", err.Error()))
	}

	s.publish(ctx, events.OrderPlaced(sid, placed.Order.ID))
	s.publish(ctx, events.CartChanged(sid))
	s.Metrics.CheckoutStep(string(StageConfirmed))
	s.Metrics.CheckoutCompleted(string(basket.Source), string(method))
	s.Logger.Info("order placed",
		slog.Int64("order_id", placed.Order.ID),
		slog.String("source", string(basket.Source)),
		slog.String("payment_method", string(method)))

	return confirmed, nil
}

// refreshBasket re-reads the cart for cart checkouts and re-prices the coupon
// when the subtotal moved since it was applied.
func (s *Service) refreshBasket(ctx context.Context, sid string, b Basket) (Basket, error) {
	if b.Source == SourceCart {
		cart, err := s.Orders.Cart(ctx)
		if err != nil {
			return b, err
		}
		lines := cart.Lines()
		if len(lines) == 0 {
			return b, ErrNothingToCheckout
		}
		b.Items = lines
	}

	if b.Coupon == nil {
		return b, nil
	}
	subtotal := pricing.Subtotal(b.Items)
	if b.Coupon.Subtotal.Equal(subtotal) {
		return b, nil
	}

	app, err := s.Coupons.ApplyCoupon(ctx, b.Coupon.Code, subtotal)
	if err != nil {
		if !domain.IsCode(err, domain.ECONFLICT) && !domain.IsValidationError(err) {
			return b, err
		}
		b.Coupon = nil
		if _, uerr := s.mutate(ctx, sid, func(_ *session.Session, cur State) (State, error) {
			if cur == nil {
				return nil, ErrNoCheckout
			}
			return Transition(cur, SetCoupon{})
		}); uerr != nil {
			s.Logger.Warn("failed to drop stale coupon", slog.String("error", uerr.Error()))
		}
		return b, ErrCouponNoLonger
	}
	b.Coupon = &app
	return b, nil
}

func (s *Service) orderRequest(cp ChoosingPayment, b Basket, method domain.PaymentMethod) api.CreateOrderRequest {
	f := cp.Address.Form
	req := api.CreateOrderRequest{
		ShippingName:       f.FullName,
		ShippingAddress:    cp.Address.FullAddress(),
		ShippingCity:       cp.Address.City(),
		ShippingPostalCode: f.PostalCode,
		ShippingCountry:    DefaultCountry,
		PhoneNumber:        f.PhoneNumber,
		Notes:              f.Notes,
		PaymentMethod:      method.APIValue(),
	}
	if b.Coupon != nil {
		req.CouponCode = b.Coupon.Code
	}
	return req
}

// Reset forgets the wizard state, typically after the confirmation page.
func (s *Service) Reset(ctx context.Context, sid string) error {
	_, err := s.Sessions.Update(ctx, sid, func(sess *session.Session) error {
		sess.Checkout = nil
		return nil
	})
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if s.Bus == nil {
		return
	}
	if err := s.Bus.Publish(ctx, ev); err != nil {
		s.Logger.Warn("failed to publish event", slog.String("topic", ev.Topic), slog.String("error", err.Error()))
	}
}

func (s *Service) mutate(ctx context.Context, sid string, fn func(*session.Session, State) (State, error)) (State, error) {
	var out State
	_, err := s.Sessions.Update(ctx, sid, func(sess *session.Session) error {
		cur, err := Decode(sess.Checkout)
		if err != nil {
			cur = nil
		}
		next, err := fn(sess, cur)
		if err != nil {
			return err
		}
		raw, err := Encode(next)
		if err != nil {
			return err
		}
		sess.Checkout = raw
		out = next
		return nil
	})
	return out, err
}
