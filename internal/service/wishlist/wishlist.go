// Package wishlist keeps a signed-in user's saved products.
package wishlist

import (
	"context"
	"io"
	"log"
	"sort"
	"sync"

	"storefront/internal/domain"
	wishlistrepo "storefront/internal/repository/wishlist"
)

// Wishlist mirrors one user's saved products in memory. Add and Remove update
// memory first and roll back when the remote write fails.
type Wishlist struct {
	repo   wishlistrepo.Repository
	userID string
	logger *log.Logger

	mu     sync.Mutex
	ids    map[int64]struct{}
	loaded bool
}

func New(repo wishlistrepo.Repository, userID string, logger *log.Logger) *Wishlist {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Wishlist{repo: repo, userID: userID, logger: logger, ids: make(map[int64]struct{})}
}

// IDs returns the saved product ids, loading them on first use.
func (w *Wishlist) IDs(ctx context.Context) ([]int64, error) {
	if err := w.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]int64, 0, len(w.ids))
	for id := range w.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (w *Wishlist) Contains(ctx context.Context, productID int64) (bool, error) {
	if err := w.ensureLoaded(ctx); err != nil {
		return false, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.ids[productID]
	return ok, nil
}

func (w *Wishlist) Add(ctx context.Context, productID int64) error {
	if w.userID == "" {
		return domain.ErrUnauthenticated
	}
	w.mu.Lock()
	_, had := w.ids[productID]
	w.ids[productID] = struct{}{}
	w.mu.Unlock()

	if err := w.repo.Add(ctx, w.userID, productID); err != nil {
		w.logger.Printf("wishlist: add user=%s product=%d error=%v", w.userID, productID, err)
		if !had {
			w.mu.Lock()
			delete(w.ids, productID)
			w.mu.Unlock()
		}
		return err
	}
	return nil
}

func (w *Wishlist) Remove(ctx context.Context, productID int64) error {
	if w.userID == "" {
		return domain.ErrUnauthenticated
	}
	w.mu.Lock()
	_, had := w.ids[productID]
	delete(w.ids, productID)
	w.mu.Unlock()

	if err := w.repo.Remove(ctx, w.userID, productID); err != nil {
		w.logger.Printf("wishlist: remove user=%s product=%d error=%v", w.userID, productID, err)
		if had {
			w.mu.Lock()
			w.ids[productID] = struct{}{}
			w.mu.Unlock()
		}
		return err
	}
	return nil
}

func (w *Wishlist) ensureLoaded(ctx context.Context) error {
	if w.userID == "" {
		return domain.ErrUnauthenticated
	}
	w.mu.Lock()
	loaded := w.loaded
	w.mu.Unlock()
	if loaded {
		return nil
	}

	ids, err := w.repo.List(ctx, w.userID)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.loaded {
		// Keep edits made while the list was loading.
		for _, id := range ids {
			if _, ok := w.ids[id]; !ok {
				w.ids[id] = struct{}{}
			}
		}
		w.loaded = true
	}
	return nil
}
