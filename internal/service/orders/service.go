// Package orders serves the order history and post-purchase actions.
package orders

import (
	"context"
	"io"
	"log"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/functions"
)

type Repository interface {
	Get(ctx context.Context, userID, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

type Gateway interface {
	CreatePaymentOrder(ctx context.Context, orderID string) (functions.PaymentOrder, error)
	VerifyPayment(ctx context.Context, orderID string, res functions.PaymentResult) error
	RequestReturn(ctx context.Context, orderID string, kind domain.ReturnType, reason string) error
}

type Service struct {
	repo    Repository
	gateway Gateway
	logger  *log.Logger
}

func New(repo Repository, gateway Gateway, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, gateway: gateway, logger: logger}
}

func (s *Service) List(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.repo.Get(ctx, userID, orderID)
}

// RetryPayment opens a new gateway order for the same order id.
func (s *Service) RetryPayment(ctx context.Context, userID, orderID string) (functions.PaymentOrder, error) {
	o, err := s.payable(ctx, userID, orderID)
	if err != nil {
		return functions.PaymentOrder{}, err
	}
	po, err := s.gateway.CreatePaymentOrder(ctx, o.ID)
	if err != nil {
		s.logger.Printf("orders: retry payment order=%s error=%v", o.ID, err)
		return functions.PaymentOrder{}, err
	}
	return po, nil
}

// ConfirmRetry verifies a retried payment.
func (s *Service) ConfirmRetry(ctx context.Context, userID, orderID string, res functions.PaymentResult) error {
	o, err := s.payable(ctx, userID, orderID)
	if err != nil {
		return err
	}
	if err := s.gateway.VerifyPayment(ctx, o.ID, res); err != nil {
		s.logger.Printf("orders: verify retried payment order=%s error=%v", o.ID, err)
		return err
	}
	return nil
}

// RequestReturn files a return or replacement for a delivered, paid order.
func (s *Service) RequestReturn(ctx context.Context, userID, orderID string, kind domain.ReturnType, reason string) error {
	if !kind.Valid() {
		return domain.Invalid("requestType", "must be return or replacement")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Invalid("reason", "is required")
	}
	o, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return err
	}
	if !o.CanRequestReturn() {
		return domain.ErrNotEligible
	}
	if err := s.gateway.RequestReturn(ctx, o.ID, kind, reason); err != nil {
		s.logger.Printf("orders: request return order=%s error=%v", o.ID, err)
		return err
	}
	return nil
}

func (s *Service) payable(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	o, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !o.CanRetryPayment() {
		return nil, domain.ErrNotEligible
	}
	return o, nil
}
