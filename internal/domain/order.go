package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCOD        PaymentMethod = "cod"
	PaymentCard       PaymentMethod = "card"
	PaymentUPI        PaymentMethod = "upi"
	PaymentNetBanking PaymentMethod = "netbanking"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentCard, PaymentUPI, PaymentNetBanking:
		return true
	}
	return false
}

// Prepaid reports whether the method goes through the payment gateway.
func (m PaymentMethod) Prepaid() bool {
	return m.Valid() && m != PaymentCOD
}

type PaymentStatus string

const (
	PaymentPending        PaymentStatus = "pending"
	PaymentRequiresAction PaymentStatus = "requires_action"
	PaymentPaid           PaymentStatus = "paid"
	PaymentFailed         PaymentStatus = "failed"
	PaymentRefunded       PaymentStatus = "refunded"
	PaymentCODPending     PaymentStatus = "cod_pending"
)

// Payable reports whether a gateway payment can still be attempted.
func (s PaymentStatus) Payable() bool {
	return s == PaymentPending || s == PaymentRequiresAction || s == PaymentFailed
}

type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "pending"
	FulfillmentShipped   FulfillmentStatus = "shipped"
	FulfillmentDelivered FulfillmentStatus = "delivered"
	FulfillmentCancelled FulfillmentStatus = "cancelled"
)

func (s FulfillmentStatus) IsTerminal() bool {
	return s == FulfillmentDelivered || s == FulfillmentCancelled
}

// CanTransitionTo follows pending -> shipped -> delivered, with cancellation
// allowed from any state before delivery.
func (s FulfillmentStatus) CanTransitionTo(next FulfillmentStatus) bool {
	switch s {
	case FulfillmentPending:
		return next == FulfillmentShipped || next == FulfillmentCancelled
	case FulfillmentShipped:
		return next == FulfillmentDelivered || next == FulfillmentCancelled
	}
	return false
}

type OrderItem struct {
	ProductID int64           `json:"productId"`
	Title     string          `json:"title,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID                string            `json:"id"`
	UserID            string            `json:"userId"`
	Items             []OrderItem       `json:"items"`
	ShippingAddress   AddressSnapshot   `json:"shippingAddress"`
	PaymentMethod     PaymentMethod     `json:"paymentMethod"`
	PaymentStatus     PaymentStatus     `json:"paymentStatus"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillmentStatus"`
	TotalAmount       decimal.Decimal   `json:"totalAmount"`
	Currency          string            `json:"currency"`
	TrackingNumber    string            `json:"trackingNumber,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// CanRetryPayment reports whether the order can be sent back to the gateway.
func (o Order) CanRetryPayment() bool {
	return o.PaymentMethod.Prepaid() && o.PaymentStatus.Payable() && o.FulfillmentStatus == FulfillmentPending
}

// CanRequestReturn reports whether a return or replacement may be requested.
func (o Order) CanRequestReturn() bool {
	return o.FulfillmentStatus == FulfillmentDelivered && o.PaymentStatus == PaymentPaid
}

type ReturnType string

const (
	ReturnTypeReturn      ReturnType = "return"
	ReturnTypeReplacement ReturnType = "replacement"
)

func (t ReturnType) Valid() bool {
	return t == ReturnTypeReturn || t == ReturnTypeReplacement
}

// PromoCode is a percentage discount with an optional cap and minimum subtotal.
type PromoCode struct {
	Code        string          `json:"code"`
	PercentOff  decimal.Decimal `json:"percentOff"`
	MaxDiscount decimal.Decimal `json:"maxDiscount"`
	MinSubtotal decimal.Decimal `json:"minSubtotal"`
	ExpiresAt   *time.Time      `json:"expiresAt,omitempty"`
}

// Discount computes the discount for subtotal, or zero if the code does not apply.
func (p PromoCode) Discount(subtotal decimal.Decimal, now time.Time) decimal.Decimal {
	if p.ExpiresAt != nil && now.After(*p.ExpiresAt) {
		return decimal.Zero
	}
	if subtotal.LessThan(p.MinSubtotal) {
		return decimal.Zero
	}
	d := subtotal.Mul(p.PercentOff).Div(decimal.NewFromInt(100)).Round(2)
	if p.MaxDiscount.IsPositive() && d.GreaterThan(p.MaxDiscount) {
		d = p.MaxDiscount
	}
	return d
}
