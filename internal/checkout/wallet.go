package checkout

import (
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/atelier/internal/domain"
)

// WalletStatus is the progress of the QR payment flow.
type WalletStatus string

const (
	WalletPending   WalletStatus = "pending"
	WalletVerifying WalletStatus = "verifying"
	WalletVerified  WalletStatus = "verified"
	WalletExpired   WalletStatus = "expired"
)

// ErrWalletExpired is returned when confirming a QR code after it expired.
var ErrWalletExpired = &domain.Error{
	Code:    domain.ECONFLICT,
	Op:      "checkout.wallet",
	Message: "The payment code has expired. Please generate a new one.",
}

// WalletFlow is a simulated e-wallet payment. It holds only timestamps, so
// its status is a pure function of the clock.
type WalletFlow struct {
	Reference   string          `json:"reference"`
	Amount      decimal.Decimal `json:"amount"`
	StartedAt   time.Time       `json:"started_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
	VerifyDelay time.Duration   `json:"verify_delay"`
}

// StartWallet issues a QR code for amount valid for ttl.
func StartWallet(reference string, amount decimal.Decimal, now time.Time, ttl, verifyDelay time.Duration) *WalletFlow {
	return &WalletFlow{
		Reference:   reference,
		Amount:      amount,
		StartedAt:   now,
		ExpiresAt:   now.Add(ttl),
		VerifyDelay: verifyDelay,
	}
}

// Status reports the flow's progress at now.
func (w WalletFlow) Status(now time.Time) WalletStatus {
	if w.ConfirmedAt != nil {
		if !now.Before(w.ConfirmedAt.Add(w.VerifyDelay)) {
			return WalletVerified
		}
		return WalletVerifying
	}
	if !now.Before(w.ExpiresAt) {
		return WalletExpired
	}
	return WalletPending
}

// Remaining is the time left to pay, zero once expired or confirmed.
func (w WalletFlow) Remaining(now time.Time) time.Duration {
	if w.ConfirmedAt != nil || !now.Before(w.ExpiresAt) {
		return 0
	}
	return w.ExpiresAt.Sub(now)
}

// Confirm records the shopper's "I have paid". Confirming twice keeps the first time.
func (w WalletFlow) Confirm(now time.Time) (*WalletFlow, error) {
	switch w.Status(now) {
	case WalletExpired:
		return nil, ErrWalletExpired
	case WalletVerifying, WalletVerified:
		return &w, nil
	}
	t := now
	w.ConfirmedAt = &t
	return &w, nil
}

// Payload is the text encoded in the QR code.
func (w WalletFlow) Payload() string {
	q := url.Values{}
	q.Set("ref", w.Reference)
	q.Set("amount", w.Amount.StringFixed(0))
	return fmt.Sprintf("atelierpay://transfer?%s", q.Encode())
}
