package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// cleanupTimeout bounds the restore and compensation steps, which outlive the
// shopper's request.
const cleanupTimeout = 15 * time.Second

// StepStatus is the outcome of one saga step.
type StepStatus string

const (
	StepDone               StepStatus = "done"
	StepFailed             StepStatus = "failed"
	StepCompensated        StepStatus = "compensated"
	StepCompensationFailed StepStatus = "compensation_failed"
)

// Saga step names.
const (
	StepSnapshotCart = "snapshot_cart"
	StepClearCart    = "clear_cart"
	StepLoadBuyNow   = "load_buy_now"
	StepCreateOrder  = "create_order"
	StepRestoreCart  = "restore_cart"
)

// SagaStep records one step.
type SagaStep struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
	Err    string     `json:"error,omitempty"`
}

// SagaLog is the ordered record of a saga run.
type SagaLog []SagaStep

func (l *SagaLog) record(name string, status StepStatus, err error) {
	s := SagaStep{Name: name, Status: status}
	if err != nil {
		s.Err = err.Error()
	}
	*l = append(*l, s)
}

// SagaObserver is told about compensations and failed restores.
type SagaObserver interface {
	SagaCompensated(step string)
	SagaRestoreFailed()
}

// RestoreWarning is shown when the order succeeded but the shopper's
// original cart could not be put back.
const RestoreWarning = "Your order was placed, but we couldn't restore the items that were in your cart. Please check your cart."

// SwapSaga places a buy-now order on servers that only order the persisted
// cart: it parks the shopper's cart, orders the buy-now items through the
// cart, then puts the original cart back. Steps before order creation are
// compensated in reverse on failure. After the order exists nothing is
// undone; a failed restore becomes a warning.
type SwapSaga struct {
	API      OrderAPI
	Logger   *slog.Logger
	Observer SagaObserver
}

type compensation struct {
	step string
	undo func(context.Context) error
}

// Place runs the saga.
func (s SwapSaga) Place(ctx context.Context, p Placement) (Placed, error) {
	var (
		log   SagaLog
		comps []compensation
	)

	fail := func(step string, err error) (Placed, error) {
		log.record(step, StepFailed, err)
		s.compensate(ctx, comps, &log)
		s.Logger.Warn("buy-now saga failed",
			slog.String("step", step),
			slog.String("error", err.Error()),
			slog.Any("log", log))
		return Placed{}, err
	}

	// 1. Remember the shopper's cart.
	original, err := s.API.Cart(ctx)
	if err != nil {
		return fail(StepSnapshotCart, err)
	}
	want := cartQuantities(original)
	log.record(StepSnapshotCart, StepDone, nil)

	// 2. Empty it.
	comps = append(comps, compensation{step: StepClearCart, undo: func(ctx context.Context) error {
		return reconcileCart(ctx, s.API, want)
	}})
	for id := range want {
		if err := s.API.RemoveFromCart(ctx, id); err != nil {
			return fail(StepClearCart, err)
		}
	}
	log.record(StepClearCart, StepDone, nil)

	// 3. Put the buy-now items in.
	for id, qty := range basketQuantities(p.Basket) {
		if err := s.API.AddToCart(ctx, id, qty); err != nil {
			return fail(StepLoadBuyNow, err)
		}
	}
	log.record(StepLoadBuyNow, StepDone, nil)

	// 4. Order the cart. Past this point nothing is compensated.
	req := p.Request
	req.Items = nil
	order, err := s.API.CreateOrder(ctx, req, p.IdempotencyKey)
	if err != nil {
		return fail(StepCreateOrder, err)
	}
	log.record(StepCreateOrder, StepDone, nil)

	// 5. Put the original cart back, even if the shopper has gone.
	placed := Placed{Order: order}
	restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := reconcileCart(restoreCtx, s.API, want); err != nil {
		log.record(StepRestoreCart, StepFailed, err)
		placed.Warnings = append(placed.Warnings, RestoreWarning)
		if s.Observer != nil {
			s.Observer.SagaRestoreFailed()
		}
		s.Logger.Error("buy-now order placed but cart restore failed",
			slog.Int64("order_id", order.ID),
			slog.String("error", err.Error()),
			slog.Any("log", log))
		return placed, nil
	}
	log.record(StepRestoreCart, StepDone, nil)

	s.Logger.Info("buy-now order placed", slog.Int64("order_id", order.ID), slog.Int("steps", len(log)))
	return placed, nil
}

func (s SwapSaga) compensate(ctx context.Context, comps []compensation, log *SagaLog) {
	// Compensations run even if the request was cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	for i := len(comps) - 1; i >= 0; i-- {
		c := comps[i]
		if err := c.undo(ctx); err != nil {
			log.record(c.step, StepCompensationFailed, fmt.Errorf("undo: %w", err))
			continue
		}
		log.record(c.step, StepCompensated, nil)
		if s.Observer != nil {
			s.Observer.SagaCompensated(c.step)
		}
	}
}
