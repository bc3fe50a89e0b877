package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"storefront/internal/auth"
	"storefront/internal/service/cart"
	"storefront/internal/service/checkout"
	"storefront/internal/service/wishlist"
)

// ErrNoCheckout is returned when a checkout action arrives before a
// checkout was started.
var ErrNoCheckout = errors.New("no checkout in progress")

// Session is the server-side state of one device: its cart, the identity it
// last presented, and any checkout or wishlist in progress.
type Session struct {
	DeviceID string
	Cart     *cart.Store

	reconciler *cart.Reconciler
	manager    *Manager

	// authMu serialises identity changes, which make network calls.
	authMu sync.Mutex

	mu       sync.Mutex
	identity auth.Identity
	checkout *checkout.Session
	wishlist *wishlist.Wishlist

	lastSeen atomic.Int64
	streams  atomic.Int32
}

func (s *Session) Identity() auth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// StartCheckout mounts a fresh checkout, discarding any previous one.
func (s *Session) StartCheckout(ctx context.Context) (*checkout.Session, error) {
	id := s.Identity()
	c, err := checkout.New(ctx, s.manager.deps.Checkout, id.UserID, s.Cart)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.checkout = c
	s.mu.Unlock()
	return c, nil
}

func (s *Session) Checkout() (*checkout.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout == nil {
		return nil, ErrNoCheckout
	}
	return s.checkout, nil
}

// Wishlist returns the wishlist of the signed-in user.
func (s *Session) Wishlist() *wishlist.Wishlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wishlist == nil {
		s.wishlist = wishlist.New(s.manager.deps.Wishlists, s.identity.UserID, s.manager.logger)
	}
	return s.wishlist
}

// Watch streams cart snapshots to fn until cancel is called. A watched
// session is never evicted for idleness.
func (s *Session) Watch(fn func(cart.Snapshot)) (cancel func()) {
	s.streams.Add(1)
	stop := s.Cart.Subscribe(fn)
	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			s.streams.Add(-1)
			s.touch(s.manager.now())
		})
	}
}

// authenticate moves the session to id. A changed user resets checkout and
// wishlist and rebinds the cart; a failed rebind is logged and retried on the
// next request.
func (s *Session) authenticate(ctx context.Context, id auth.Identity) {
	s.authMu.Lock()
	defer s.authMu.Unlock()

	s.mu.Lock()
	changed := s.identity.UserID != id.UserID
	s.identity = id
	if changed {
		s.checkout = nil
		s.wishlist = nil
	}
	s.mu.Unlock()

	if s.reconciler.Owner() == id.UserID {
		return
	}
	if err := s.reconciler.SetOwner(ctx, id.UserID); err != nil {
		s.manager.logger.Printf("session: bind cart device=%s user=%s error=%v", s.DeviceID, id.UserID, err)
	}
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// close stops listening for remote changes and writes out anything pending.
func (s *Session) close(ctx context.Context) error {
	s.reconciler.Close()
	err := s.Cart.Flush(ctx)
	s.Cart.Close()
	return err
}
