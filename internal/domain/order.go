package domain

import "time"

// OrderStatus is the fulfilment state reported by the shop API.
// The frontend never moves an order between states except through the cancel endpoint.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order, for admin filters.
var OrderStatuses = []OrderStatus{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}

var orderStatusLabels = map[OrderStatus]string{
	OrderPending:    "Pending",
	OrderProcessing: "Processing",
	OrderShipped:    "Shipped",
	OrderDelivered:  "Delivered",
	OrderCancelled:  "Cancelled",
}

// Label returns a display name. Unknown statuses are shown verbatim.
func (s OrderStatus) Label() string {
	if l, ok := orderStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusLabels[s]
	return ok
}

// CanCancel reports whether a shopper may request cancellation.
// The shop API makes the final decision.
func (s OrderStatus) CanCancel() bool {
	return s == OrderPending || s == OrderProcessing
}

// EstimatedDelivery returns the expected delivery date for an order still in transit.
// ok is false for delivered, cancelled or unknown statuses.
func (s OrderStatus) EstimatedDelivery(placed time.Time) (t time.Time, ok bool) {
	switch s {
	case OrderPending:
		return placed.AddDate(0, 0, 3), true
	case OrderProcessing:
		return placed.AddDate(0, 0, 2), true
	case OrderShipped:
		return placed.AddDate(0, 0, 1), true
	}
	return time.Time{}, false
}

// PaymentStatus is the payment state reported by the shop API.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// PaymentStatuses lists every payment status.
var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded}

// Valid reports whether s is one of the known payment statuses.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// PaymentMethod is the shopper's chosen way to pay.
type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "cod"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentWallet       PaymentMethod = "wallet"
)

// PaymentMethods lists the methods offered at checkout, in display order.
var PaymentMethods = []PaymentMethod{PaymentCOD, PaymentBankTransfer, PaymentWallet}

// Valid reports whether m is an offered method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentBankTransfer, PaymentWallet:
		return true
	}
	return false
}

// Label returns a display name for the payment method.
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentCOD:
		return "Cash on delivery"
	case PaymentBankTransfer:
		return "Bank transfer"
	case PaymentWallet:
		return "E-wallet (QR)"
	}
	return string(m)
}

// APIValue is the method name the shop API expects. The wallet flow is
// registered there under the provider's name.
func (m PaymentMethod) APIValue() string {
	if m == PaymentWallet {
		return "momo"
	}
	return string(m)
}
