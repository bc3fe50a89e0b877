package order

import (
	"context"

	"storefront/internal/domain"
)

type CreateInput struct {
	UserID        string
	Items         []domain.CartItem
	AddressID     string
	PaymentMethod domain.PaymentMethod
	PromoCode     string
	// IdempotencyKey makes a resubmission of the same checkout return the
	// order created the first time.
	IdempotencyKey string
}

type Repository interface {
	// Create calls create_order_with_validation and returns the new order id.
	Create(ctx context.Context, in CreateInput) (string, error)
	Get(ctx context.Context, userID, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	SetTrackingNumber(ctx context.Context, orderID, trackingNumber string) error
	FindPromo(ctx context.Context, code string) (*domain.PromoCode, error)
}
