package checkout

import (
	"storefront/internal/domain"
	"storefront/internal/functions"
)

// View is the client-facing summary of a checkout.
type View struct {
	State           string                  `json:"state"`
	Step            int                     `json:"step"`
	AddressID       string                  `json:"addressId,omitempty"`
	AddressVerified bool                    `json:"addressVerified"`
	PaymentMethod   domain.PaymentMethod    `json:"paymentMethod,omitempty"`
	PromoCode       string                  `json:"promoCode,omitempty"`
	Submitting      bool                    `json:"submitting"`
	OrderID         string                  `json:"orderId,omitempty"`
	TrackingNumber  string                  `json:"trackingNumber,omitempty"`
	GatewayOrder    *functions.PaymentOrder `json:"gatewayOrder,omitempty"`
	Error           string                  `json:"error,omitempty"`
	Items           []domain.CartItem       `json:"items"`
	Totals          Totals                  `json:"totals"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		State:           s.state.Name(),
		Step:            s.state.Step(),
		AddressVerified: s.verified,
		PaymentMethod:   s.method,
		Submitting:      s.submitting,
	}
	if s.submitted != nil && s.afterSubmitLocked() {
		v.Items, v.Totals = domain.CloneItems(s.submitted.items), s.submitted.totals
	} else {
		v.Items = s.cart.Items()
		v.Totals = Price(s.cart.TotalPrice(), s.promo, s.deps.Currency, s.deps.Now())
	}
	if s.address != nil {
		v.AddressID = s.address.ID
	}
	if s.promo != nil {
		v.PromoCode = s.promo.Code
	}
	switch st := s.state.(type) {
	case AwaitingPayment:
		po := st.GatewayOrder
		v.OrderID, v.GatewayOrder = st.OrderID, &po
	case Placed:
		v.OrderID, v.TrackingNumber = st.OrderID, st.TrackingNumber
	case Failed:
		v.OrderID = st.OrderID
		if st.Reason != nil {
			v.Error = st.Reason.Error()
		}
	}
	return v
}

// afterSubmitLocked reports whether an order exists for this checkout or is
// being created.
func (s *Session) afterSubmitLocked() bool {
	if s.submitting {
		return true
	}
	switch st := s.state.(type) {
	case AwaitingPayment, Placed:
		return true
	case Failed:
		return st.OrderID != ""
	}
	return false
}
