package wishlist

import "context"

type Repository interface {
	List(ctx context.Context, userID string) ([]int64, error)
	Add(ctx context.Context, userID string, productID int64) error
	Remove(ctx context.Context, userID string, productID int64) error
}
