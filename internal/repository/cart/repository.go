package cart

import (
	"context"
	"errors"

	"storefront/internal/changefeed"
	"storefront/internal/domain"
)

// ErrCartContention is returned when a cart could be neither found nor
// created after several attempts.
var ErrCartContention = errors.New("cart get-or-create contention")

// Repository is the remote cart store for authenticated owners. Each owner
// has exactly one cart.
type Repository interface {
	GetOrCreateCartID(ctx context.Context, ownerID string) (string, error)
	// LoadItems returns items in stored order, dropping lines whose product
	// no longer exists. Deactivated products stay in the cart; order
	// creation rejects them.
	LoadItems(ctx context.Context, cartID string) ([]domain.CartItem, error)
	// ReplaceItems overwrites the cart's contents with items, keeping their order.
	ReplaceItems(ctx context.Context, cartID string, items []domain.CartItem) error
	// Subscribe signals whenever a row of the cart changes.
	Subscribe(ctx context.Context, cartID string) (changefeed.Subscription, error)
}
