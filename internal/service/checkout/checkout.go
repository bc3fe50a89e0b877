// Package checkout drives a single checkout from the shipping step to a
// placed order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/functions"
	"storefront/internal/repository/order"
)

var pincodePattern = regexp.MustCompile(`^\d{6}$`)

type Orders interface {
	Create(ctx context.Context, in order.CreateInput) (string, error)
	SetTrackingNumber(ctx context.Context, orderID, trackingNumber string) error
	FindPromo(ctx context.Context, code string) (*domain.PromoCode, error)
}

type Addresses interface {
	ListActive(ctx context.Context, userID string) ([]domain.Address, error)
	Get(ctx context.Context, userID, id string) (*domain.Address, error)
}

type Gateway interface {
	CheckServiceability(ctx context.Context, pincode string) (bool, error)
	CreatePaymentOrder(ctx context.Context, orderID string) (functions.PaymentOrder, error)
	VerifyPayment(ctx context.Context, orderID string, res functions.PaymentResult) error
	CreateShipment(ctx context.Context, req functions.ShipmentRequest) (string, error)
}

// Cart is the part of the cart store checkout reads and clears.
type Cart interface {
	Items() []domain.CartItem
	TotalPrice() decimal.Decimal
	Clear(ctx context.Context) error
}

type Deps struct {
	Orders    Orders
	Addresses Addresses
	Gateway   Gateway
	Currency  string

	// DefaultMethod preselects the payment step; cash on delivery when unset.
	DefaultMethod domain.PaymentMethod
	Logger        *log.Logger
	Now           func() time.Time
}

// Session is one checkout. Data entered on earlier steps survives Back.
type Session struct {
	deps   Deps
	cart   Cart
	userID string

	mu             sync.Mutex
	state          State
	address        *domain.Address
	verified       bool
	method         domain.PaymentMethod
	promo          *domain.PromoCode
	submitting     bool
	idempotencyKey string
	// submitted is what the order was placed with; the live cart may be
	// cleared afterwards.
	submitted *summary
}

type summary struct {
	items  []domain.CartItem
	totals Totals
}

// New mounts a checkout for userID. An empty cart yields Empty; otherwise
// the session starts at Shipping with the default address selected but not
// verified.
func New(ctx context.Context, deps Deps, userID string, cart Cart) (*Session, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Currency == "" {
		deps.Currency = "INR"
	}
	if !deps.DefaultMethod.Valid() {
		deps.DefaultMethod = domain.PaymentCOD
	}
	s := &Session{deps: deps, cart: cart, userID: userID, state: Empty{}, method: deps.DefaultMethod}
	if len(cart.Items()) == 0 {
		return s, nil
	}

	addrs, err := deps.Addresses.ListActive(ctx, userID)
	if err != nil {
		deps.Logger.Printf("checkout: list addresses user=%s error=%v", userID, err)
	}
	for i := range addrs {
		if addrs[i].IsDefault {
			a := addrs[i]
			s.address = &a
			break
		}
	}
	s.state = s.shippingLocked()
	return s, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SelectAddress(ctx context.Context, addressID string) (View, error) {
	s.mu.Lock()
	if _, ok := s.state.(Shipping); !ok {
		defer s.mu.Unlock()
		return s.viewLocked(), ErrInvalidTransition
	}
	s.mu.Unlock()

	addr, err := s.deps.Addresses.Get(ctx, s.userID, addressID)
	if err != nil {
		return s.View(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Shipping); !ok {
		return s.viewLocked(), ErrInvalidTransition
	}
	if s.address == nil || s.address.ID != addr.ID {
		s.verified = false
	}
	s.address = addr
	s.state = s.shippingLocked()
	return s.viewLocked(), nil
}

// CheckServiceability verifies delivery to the selected address's pincode.
func (s *Session) CheckServiceability(ctx context.Context) (View, error) {
	s.mu.Lock()
	if _, ok := s.state.(Shipping); !ok || s.address == nil {
		defer s.mu.Unlock()
		if ok {
			return s.viewLocked(), ErrStepIncomplete
		}
		return s.viewLocked(), ErrInvalidTransition
	}
	addressID, pincode := s.address.ID, s.address.PostalCode
	s.mu.Unlock()

	if !pincodePattern.MatchString(pincode) {
		return s.View(), domain.Invalid("postalCode", "must be 6 digits")
	}
	ok, err := s.deps.Gateway.CheckServiceability(ctx, pincode)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, shipping := s.state.(Shipping); !shipping || s.address == nil || s.address.ID != addressID {
		return s.viewLocked(), ErrInvalidTransition
	}
	s.verified = err == nil && ok
	s.state = s.shippingLocked()
	if err != nil {
		s.deps.Logger.Printf("checkout: serviceability pincode=%s error=%v", pincode, err)
		return s.viewLocked(), err
	}
	return s.viewLocked(), nil
}

func (s *Session) Next() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state.(type) {
	case Shipping:
		if s.address == nil || !s.verified {
			return s.viewLocked(), ErrStepIncomplete
		}
		s.state = Payment{Method: s.method}
	case Payment:
		if !s.method.Valid() {
			return s.viewLocked(), ErrStepIncomplete
		}
		s.idempotencyKey = uuid.NewString()
		s.state = Confirm{}
	default:
		return s.viewLocked(), ErrInvalidTransition
	}
	return s.viewLocked(), nil
}

// Back returns to the previous step. A failed order creation goes back to
// Confirm so it can be submitted again.
func (s *Session) Back() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch st := s.state.(type) {
	case Payment:
		s.state = s.shippingLocked()
	case Confirm:
		if s.submitting {
			return s.viewLocked(), ErrSubmitInFlight
		}
		s.state = Payment{Method: s.method}
	case Failed:
		if st.OrderID != "" {
			return s.viewLocked(), ErrInvalidTransition
		}
		s.state = Confirm{}
	default:
		return s.viewLocked(), ErrInvalidTransition
	}
	return s.viewLocked(), nil
}

func (s *Session) SetPaymentMethod(m domain.PaymentMethod) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Payment); !ok {
		return s.viewLocked(), ErrInvalidTransition
	}
	if !m.Valid() {
		return s.viewLocked(), domain.Invalid("paymentMethod", fmt.Sprintf("unsupported method %q", m))
	}
	s.method = m
	s.state = Payment{Method: m}
	return s.viewLocked(), nil
}

func (s *Session) ApplyPromo(ctx context.Context, code string) (View, error) {
	s.mu.Lock()
	if !s.inWizardLocked() {
		defer s.mu.Unlock()
		return s.viewLocked(), ErrInvalidTransition
	}
	s.mu.Unlock()

	promo, err := s.deps.Orders.FindPromo(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return s.View(), domain.Invalid("promoCode", "unknown or expired code")
	}
	if err != nil {
		return s.View(), err
	}
	if promo.Discount(s.cart.TotalPrice(), s.deps.Now()).IsZero() {
		return s.View(), domain.Invalid("promoCode", "code does not apply to this cart")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inWizardLocked() {
		return s.viewLocked(), ErrInvalidTransition
	}
	s.promo = promo
	return s.viewLocked(), nil
}

func (s *Session) RemovePromo() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inWizardLocked() {
		return s.viewLocked(), ErrInvalidTransition
	}
	s.promo = nil
	return s.viewLocked(), nil
}

// Submit places the order. It makes exactly one order-creation call per
// submission and refuses to start while one is running.
//
// Cash on delivery books the shipment, clears the cart and ends in Placed; a
// failed shipment booking is logged and does not fail the order. Prepaid
// methods open a gateway order and end in AwaitingPayment with the cart
// untouched.
func (s *Session) Submit(ctx context.Context) (View, error) {
	s.mu.Lock()
	if s.submitting {
		defer s.mu.Unlock()
		return s.viewLocked(), ErrSubmitInFlight
	}
	if _, ok := s.state.(Confirm); !ok {
		defer s.mu.Unlock()
		return s.viewLocked(), ErrInvalidTransition
	}
	items := s.cart.Items()
	if len(items) == 0 {
		defer s.mu.Unlock()
		s.state = Empty{}
		return s.viewLocked(), nil
	}
	in := order.CreateInput{
		UserID:         s.userID,
		Items:          items,
		AddressID:      s.address.ID,
		PaymentMethod:  s.method,
		IdempotencyKey: s.idempotencyKey,
	}
	if s.promo != nil {
		in.PromoCode = s.promo.Code
	}
	addr := s.address.Snapshot()
	s.submitted = &summary{
		items:  items,
		totals: Price(domain.TotalPrice(items), s.promo, s.deps.Currency, s.deps.Now()),
	}
	s.submitting = true
	s.mu.Unlock()

	next, err := s.place(ctx, in, addr)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	s.state = next
	return s.viewLocked(), err
}

func (s *Session) place(ctx context.Context, in order.CreateInput, addr domain.AddressSnapshot) (State, error) {
	orderID, err := s.deps.Orders.Create(ctx, in)
	if err != nil {
		s.deps.Logger.Printf("checkout: create order user=%s error=%v", in.UserID, err)
		return Failed{Reason: err}, err
	}
	s.deps.Logger.Printf("checkout: order created order=%s user=%s method=%s", orderID, in.UserID, in.PaymentMethod)

	if in.PaymentMethod.Prepaid() {
		po, err := s.deps.Gateway.CreatePaymentOrder(ctx, orderID)
		if err != nil {
			s.deps.Logger.Printf("checkout: create payment order order=%s error=%v", orderID, err)
			return Failed{Reason: err, OrderID: orderID}, err
		}
		return AwaitingPayment{OrderID: orderID, GatewayOrder: po}, nil
	}

	tracking := s.bookShipment(ctx, orderID, addr, in.Items)
	s.clearCart(ctx)
	return Placed{OrderID: orderID, TrackingNumber: tracking}, nil
}

func (s *Session) bookShipment(ctx context.Context, orderID string, addr domain.AddressSnapshot, items []domain.CartItem) string {
	req := functions.ShipmentRequest{OrderID: orderID, Address: addr}
	for _, it := range items {
		req.Items = append(req.Items, functions.ShipmentItem{
			ProductID: it.ProductID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	waybill, err := s.deps.Gateway.CreateShipment(ctx, req)
	if err != nil {
		s.deps.Logger.Printf("checkout: create shipment order=%s error=%v", orderID, err)
		return ""
	}
	if waybill == "" {
		return ""
	}
	if err := s.deps.Orders.SetTrackingNumber(ctx, orderID, waybill); err != nil {
		s.deps.Logger.Printf("checkout: set tracking order=%s error=%v", orderID, err)
	}
	return waybill
}

func (s *Session) clearCart(ctx context.Context) {
	if err := s.cart.Clear(ctx); err != nil {
		s.deps.Logger.Printf("checkout: clear cart user=%s error=%v", s.userID, err)
	}
}

// PaymentSucceeded handles the gateway success callback. The order only
// counts as paid once the payment is verified.
func (s *Session) PaymentSucceeded(ctx context.Context, res functions.PaymentResult) (View, error) {
	s.mu.Lock()
	st, ok := s.state.(AwaitingPayment)
	if !ok {
		defer s.mu.Unlock()
		return s.viewLocked(), ErrInvalidTransition
	}
	if s.submitting {
		defer s.mu.Unlock()
		return s.viewLocked(), ErrSubmitInFlight
	}
	s.submitting = true
	s.mu.Unlock()

	var next State = Placed{OrderID: st.OrderID}
	err := s.deps.Gateway.VerifyPayment(ctx, st.OrderID, res)
	if err != nil {
		s.deps.Logger.Printf("checkout: verify payment order=%s error=%v", st.OrderID, err)
		next = Failed{Reason: err, OrderID: st.OrderID}
	} else {
		s.clearCart(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	s.state = next
	return s.viewLocked(), err
}

// PaymentDismissed records that the overlay was closed without paying. The
// order stays payable from the orders page.
func (s *Session) PaymentDismissed() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state.(AwaitingPayment)
	if !ok || s.submitting {
		return s.viewLocked(), ErrInvalidTransition
	}
	s.state = Failed{Reason: ErrPaymentCancelled, OrderID: st.OrderID}
	return s.viewLocked(), nil
}

func (s *Session) shippingLocked() Shipping {
	st := Shipping{Verified: s.verified}
	if s.address != nil {
		st.AddressID = s.address.ID
	}
	return st
}

func (s *Session) inWizardLocked() bool {
	switch s.state.(type) {
	case Shipping, Payment:
		return true
	case Confirm:
		return !s.submitting
	}
	return false
}
