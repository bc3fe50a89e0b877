package product

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
	// SubmitReview calls submit_product_review. Reviews are only accepted
	// for products delivered to the user.
	SubmitReview(ctx context.Context, userID string, productID int64, rating int, comment string) (string, error)
}
