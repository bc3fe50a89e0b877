package product

import (
	"context"
	"strings"

	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx)
}

// Get returns an active product. Inactive products cannot be added to a cart.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, domain.ErrNotFound
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// SubmitReview records a 1 to 5 star review. Only users with a delivered
// order containing the product may review it; resubmitting replaces the
// earlier review.
func (s *Service) SubmitReview(ctx context.Context, userID string, productID int64, rating int, comment string) (string, error) {
	if userID == "" {
		return "", domain.ErrUnauthenticated
	}
	if rating < 1 || rating > 5 {
		return "", domain.Invalid("rating", "must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > 2000 {
		return "", domain.Invalid("comment", "must be at most 2000 characters")
	}
	return s.repo.SubmitReview(ctx, userID, productID, rating, comment)
}
