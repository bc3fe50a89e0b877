package product

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storefront/internal/domain"
)

type stubRepo struct {
	products map[int64]domain.Product
	reviews  int
}

func (s *stubRepo) List(context.Context) ([]domain.Product, error) {
	return nil, nil
}

func (s *stubRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *stubRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	return &p, nil
}

func (s *stubRepo) SubmitReview(context.Context, string, int64, int, string) (string, error) {
	s.reviews++
	return "review-1", nil
}

func TestGet_HidesInactiveProducts(t *testing.T) {
	repo := &stubRepo{products: map[int64]domain.Product{
		1: {ID: 1, IsActive: true},
		2: {ID: 2, IsActive: false},
	}}
	svc := New(repo)

	if _, err := svc.Get(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range []int64{2, 3, 0} {
		if _, err := svc.Get(context.Background(), id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("id %d: expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestSubmitReview_Validation(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo)
	ctx := context.Background()

	if _, err := svc.SubmitReview(ctx, "", 1, 5, ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	for _, rating := range []int{0, 6} {
		if _, err := svc.SubmitReview(ctx, "user-1", 1, rating, ""); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("rating %d: expected validation error, got %v", rating, err)
		}
	}
	if _, err := svc.SubmitReview(ctx, "user-1", 1, 4, strings.Repeat("x", 2001)); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for long comment, got %v", err)
	}
	if repo.reviews != 0 {
		t.Fatalf("repo must not be called, got %d calls", repo.reviews)
	}

	id, err := svc.SubmitReview(ctx, "user-1", 1, 4, " solid ")
	if err != nil || id != "review-1" {
		t.Fatalf("unexpected result id=%q err=%v", id, err)
	}
}
