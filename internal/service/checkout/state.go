package checkout

import (
	"errors"

	"storefront/internal/domain"
	"storefront/internal/functions"
)

var (
	ErrInvalidTransition = errors.New("checkout: invalid transition")
	ErrSubmitInFlight    = errors.New("checkout: order submission already in progress")
	ErrPaymentCancelled  = errors.New("checkout: payment cancelled")
	ErrStepIncomplete    = errors.New("checkout: current step is incomplete")
)

// State is one of Empty, Shipping, Payment, Confirm, AwaitingPayment,
// Placed or Failed.
type State interface {
	Name() string
	// Step is the wizard step (1 shipping, 2 payment, 3 confirm), 0 outside
	// the wizard.
	Step() int
}

type Empty struct{}

type Shipping struct {
	AddressID string
	Verified  bool
}

type Payment struct {
	Method domain.PaymentMethod
}

type Confirm struct{}

type AwaitingPayment struct {
	OrderID      string
	GatewayOrder functions.PaymentOrder
}

type Placed struct {
	OrderID        string
	TrackingNumber string
}

// Failed carries the order id when the order exists but is unpaid, so the
// payment can be retried from the orders page.
type Failed struct {
	Reason  error
	OrderID string
}

func (Empty) Name() string           { return "empty" }
func (Shipping) Name() string        { return "shipping" }
func (Payment) Name() string         { return "payment" }
func (Confirm) Name() string         { return "confirm" }
func (AwaitingPayment) Name() string { return "awaiting_payment" }
func (Placed) Name() string          { return "placed" }
func (Failed) Name() string          { return "failed" }

func (Empty) Step() int           { return 0 }
func (Shipping) Step() int        { return 1 }
func (Payment) Step() int         { return 2 }
func (Confirm) Step() int         { return 3 }
func (AwaitingPayment) Step() int { return 0 }
func (Placed) Step() int          { return 0 }
func (Failed) Step() int          { return 0 }
