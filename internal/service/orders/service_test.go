package orders

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/functions"
)

type stubRepo struct {
	orders map[string]domain.Order
}

func (s *stubRepo) Get(_ context.Context, userID, id string) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok || o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (s *stubRepo) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

type stubGateway struct {
	paymentOrders []string
	verified      []string
	returns       []domain.ReturnType
}

func (s *stubGateway) CreatePaymentOrder(_ context.Context, orderID string) (functions.PaymentOrder, error) {
	s.paymentOrders = append(s.paymentOrders, orderID)
	return functions.PaymentOrder{GatewayOrderID: "gw_" + orderID}, nil
}

func (s *stubGateway) VerifyPayment(_ context.Context, orderID string, _ functions.PaymentResult) error {
	s.verified = append(s.verified, orderID)
	return nil
}

func (s *stubGateway) RequestReturn(_ context.Context, _ string, kind domain.ReturnType, _ string) error {
	s.returns = append(s.returns, kind)
	return nil
}

func order(id string, method domain.PaymentMethod, pay domain.PaymentStatus, ful domain.FulfillmentStatus) domain.Order {
	return domain.Order{ID: id, UserID: "user-1", PaymentMethod: method, PaymentStatus: pay, FulfillmentStatus: ful}
}

func newService() (*Service, *stubGateway) {
	repo := &stubRepo{orders: map[string]domain.Order{
		"failed-card":   order("failed-card", domain.PaymentCard, domain.PaymentFailed, domain.FulfillmentPending),
		"paid-card":     order("paid-card", domain.PaymentCard, domain.PaymentPaid, domain.FulfillmentPending),
		"cod":           order("cod", domain.PaymentCOD, domain.PaymentCODPending, domain.FulfillmentPending),
		"shipped-upi":   order("shipped-upi", domain.PaymentUPI, domain.PaymentPending, domain.FulfillmentShipped),
		"delivered":     order("delivered", domain.PaymentUPI, domain.PaymentPaid, domain.FulfillmentDelivered),
		"delivered-cod": order("delivered-cod", domain.PaymentCOD, domain.PaymentCODPending, domain.FulfillmentDelivered),
	}}
	gw := &stubGateway{}
	return New(repo, gw, nil), gw
}

func TestRetryPayment_Eligibility(t *testing.T) {
	cases := map[string]error{
		"failed-card": nil,
		"paid-card":   domain.ErrNotEligible,
		"cod":         domain.ErrNotEligible,
		"shipped-upi": domain.ErrNotEligible,
		"missing":     domain.ErrNotFound,
	}
	for id, want := range cases {
		svc, gw := newService()
		po, err := svc.RetryPayment(context.Background(), "user-1", id)
		if !errors.Is(err, want) {
			t.Fatalf("%s: expected %v, got %v", id, want, err)
		}
		if want == nil {
			if po.GatewayOrderID != "gw_"+id || len(gw.paymentOrders) != 1 || gw.paymentOrders[0] != id {
				t.Fatalf("%s: expected gateway order for same order id, got %+v %v", id, po, gw.paymentOrders)
			}
		} else if len(gw.paymentOrders) != 0 {
			t.Fatalf("%s: gateway must not be called", id)
		}
	}
}

func TestRetryPayment_OtherUsersOrderIsNotFound(t *testing.T) {
	svc, _ := newService()
	if _, err := svc.RetryPayment(context.Background(), "user-2", "failed-card"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConfirmRetry(t *testing.T) {
	svc, gw := newService()
	if err := svc.ConfirmRetry(context.Background(), "user-1", "failed-card", functions.PaymentResult{GatewayPaymentID: "pay_1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gw.verified) != 1 || gw.verified[0] != "failed-card" {
		t.Fatalf("expected verification of failed-card, got %v", gw.verified)
	}
}

func TestRequestReturn(t *testing.T) {
	ctx := context.Background()
	svc, gw := newService()

	if err := svc.RequestReturn(ctx, "user-1", "delivered", "exchange", "wrong size"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for type, got %v", err)
	}
	if err := svc.RequestReturn(ctx, "user-1", "delivered", domain.ReturnTypeReturn, "   "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for reason, got %v", err)
	}
	if err := svc.RequestReturn(ctx, "user-1", "delivered-cod", domain.ReturnTypeReturn, "damaged"); !errors.Is(err, domain.ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible for unpaid order, got %v", err)
	}
	if err := svc.RequestReturn(ctx, "user-1", "paid-card", domain.ReturnTypeReturn, "damaged"); !errors.Is(err, domain.ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible for undelivered order, got %v", err)
	}
	if len(gw.returns) != 0 {
		t.Fatalf("gateway must not be called, got %v", gw.returns)
	}

	if err := svc.RequestReturn(ctx, "user-1", "delivered", domain.ReturnTypeReplacement, "damaged"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gw.returns) != 1 || gw.returns[0] != domain.ReturnTypeReplacement {
		t.Fatalf("expected one replacement request, got %v", gw.returns)
	}
}

func TestList_RequiresUser(t *testing.T) {
	svc, _ := newService()
	if _, err := svc.List(context.Background(), ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
