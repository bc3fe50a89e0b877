package address

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// ListActive returns the user's active addresses, default first.
	ListActive(ctx context.Context, userID string) ([]domain.Address, error)
	Get(ctx context.Context, userID, id string) (*domain.Address, error)
	Create(ctx context.Context, a domain.Address) (*domain.Address, error)
	// Deactivate soft-deletes an address. Orders keep their own snapshot.
	Deactivate(ctx context.Context, userID, id string) error
	// SetDefault calls set_default_address, which clears any other default.
	SetDefault(ctx context.Context, userID, id string) error
}
