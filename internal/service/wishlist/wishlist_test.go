package wishlist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront/internal/domain"
)

type stubRepo struct {
	ids []int64
	err error
}

func (s *stubRepo) List(context.Context, string) ([]int64, error) {
	return s.ids, nil
}

func (s *stubRepo) Add(context.Context, string, int64) error {
	return s.err
}

func (s *stubRepo) Remove(context.Context, string, int64) error {
	return s.err
}

func TestWishlist_LoadsOnFirstUse(t *testing.T) {
	w := New(&stubRepo{ids: []int64{3, 1}}, "user-1", nil)

	ids, err := w.IDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)
}

func TestWishlist_AddRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	repo := &stubRepo{err: errors.New("timeout")}
	w := New(repo, "user-1", nil)

	require.Error(t, w.Add(ctx, 7))
	ok, err := w.Contains(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	repo.err = nil
	require.NoError(t, w.Add(ctx, 7))
	ok, _ = w.Contains(ctx, 7)
	assert.True(t, ok)
}

func TestWishlist_RemoveRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	repo := &stubRepo{ids: []int64{5}}
	w := New(repo, "user-1", nil)
	_, err := w.IDs(ctx)
	require.NoError(t, err)

	repo.err = errors.New("timeout")
	require.Error(t, w.Remove(ctx, 5))

	ok, err := w.Contains(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWishlist_GuestIsRejected(t *testing.T) {
	w := New(&stubRepo{}, "", nil)
	assert.ErrorIs(t, w.Add(context.Background(), 1), domain.ErrUnauthenticated)
	_, err := w.IDs(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
