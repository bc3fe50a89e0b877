package cart

import (
	"context"
	"io"
	"log"
	"sync"

	"storefront/internal/changefeed"
	cartrepo "storefront/internal/repository/cart"
)

// Reconciler keeps a Store bound to the remote cart of whoever is signed in.
// On sign-in it merges the guest cart into the owner's cart and pushes the
// result; while signed in it reloads the cart on every change notification.
type Reconciler struct {
	store  *Store
	remote cartrepo.Repository
	logger *log.Logger

	mu     sync.Mutex
	owner  string
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func NewReconciler(store *Store, remote cartrepo.Repository, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Reconciler{store: store, remote: remote, logger: logger}
}

// Owner returns the signed-in owner, or "" for a guest.
func (r *Reconciler) Owner() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owner
}

// SetOwner reacts to an authentication change. "" signs out: the store
// flushes and detaches, keeping the local cart as it is. Switching between
// two owners is a sign-out followed by a sign-in. Calling it again with the
// current owner is a no-op.
func (r *Reconciler) SetOwner(ctx context.Context, ownerID string) error {
	r.mu.Lock()
	if ownerID == r.owner {
		r.mu.Unlock()
		return nil
	}
	r.stopLocked()
	r.gen++
	gen := r.gen
	r.owner = ownerID
	r.mu.Unlock()

	r.store.detach(ctx)
	if ownerID == "" {
		return nil
	}

	cartID, err := r.remote.GetOrCreateCartID(ctx, ownerID)
	if err != nil {
		r.logger.Printf("cart reconciler: resolve owner=%s error=%v", ownerID, err)
		r.abandon(gen)
		return err
	}
	remoteItems, err := r.remote.LoadItems(ctx, cartID)
	if err != nil {
		r.logger.Printf("cart reconciler: load cart_id=%s error=%v", cartID, err)
		r.abandon(gen)
		return err
	}

	r.mu.Lock()
	if r.gen != gen {
		// A later SetOwner took over while we were loading.
		r.mu.Unlock()
		return nil
	}
	bindGen, snap := r.store.attach(ctx, cartID, r.remote, remoteItems)
	r.mu.Unlock()
	r.logger.Printf("cart reconciler: signed in owner=%s cart_id=%s items=%d", ownerID, cartID, len(snap.Items))

	if err := r.store.flush(ctx, bindGen); err != nil {
		r.logger.Printf("cart reconciler: push merged cart_id=%s error=%v", cartID, err)
	}

	r.watch(gen, bindGen, cartID)
	return nil
}

// Close stops listening for remote changes. It does not flush.
func (r *Reconciler) Close() {
	r.mu.Lock()
	r.stopLocked()
	r.gen++
	r.mu.Unlock()
}

func (r *Reconciler) watch(gen, bindGen uint64, cartID string) {
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := r.remote.Subscribe(ctx, cartID)
	if err != nil {
		cancel()
		r.logger.Printf("cart reconciler: subscribe cart_id=%s error=%v", cartID, err)
		return
	}

	done := make(chan struct{})
	r.mu.Lock()
	if r.gen != gen {
		r.mu.Unlock()
		cancel()
		_ = sub.Close()
		return
	}
	r.cancel, r.done = cancel, done
	r.mu.Unlock()

	go func() {
		defer close(done)
		defer sub.Close()
		r.listen(ctx, sub, bindGen, cartID)
	}()
}

func (r *Reconciler) listen(ctx context.Context, sub changefeed.Subscription, bindGen uint64, cartID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C():
			if !ok {
				return
			}
			r.reload(ctx, bindGen, cartID)
		}
	}
}

func (r *Reconciler) reload(ctx context.Context, bindGen uint64, cartID string) {
	version := r.store.currentVersion()
	items, err := r.remote.LoadItems(ctx, cartID)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Printf("cart reconciler: reload cart_id=%s error=%v", cartID, err)
		}
		return
	}
	r.store.applyRemote(ctx, bindGen, version, items)
}

func (r *Reconciler) abandon(gen uint64) {
	r.mu.Lock()
	if r.gen == gen {
		r.owner = ""
	}
	r.mu.Unlock()
}

func (r *Reconciler) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel, r.done = nil, nil
}
