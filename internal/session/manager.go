// Package session keeps one cart session per device and binds it to the
// signed-in user.
package session

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/localstore"
	cartrepo "storefront/internal/repository/cart"
	wishlistrepo "storefront/internal/repository/wishlist"
	"storefront/internal/service/cart"
	"storefront/internal/service/checkout"
)

const defaultIdleTTL = time.Hour

type TokenVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

type Deps struct {
	// Local opens the device-local cart snapshot for a device id.
	Local     func(deviceID string) localstore.Adapter
	Carts     cartrepo.Repository
	Wishlists wishlistrepo.Repository
	Checkout  checkout.Deps
	Verifier  TokenVerifier
	Debounce  time.Duration
	IdleTTL   time.Duration
	Logger    *log.Logger
}

type Manager struct {
	deps   Deps
	logger *log.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	if deps.IdleTTL <= 0 {
		deps.IdleTTL = defaultIdleTTL
	}
	if deps.Checkout.Logger == nil {
		deps.Checkout.Logger = deps.Logger
	}
	return &Manager{
		deps:     deps,
		logger:   deps.Logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// NewDeviceID issues an id for a device that presented none.
func NewDeviceID() string {
	return uuid.NewString()
}

// Resolve returns the session for deviceID, creating it on first sight, and
// binds it to the identity carried by bearer. An empty bearer means a guest.
// deviceID must be a UUID.
func (m *Manager) Resolve(ctx context.Context, deviceID, bearer string) (*Session, error) {
	if _, err := uuid.Parse(deviceID); err != nil {
		return nil, domain.Invalid("deviceId", "must be a UUID")
	}

	var id auth.Identity
	if bearer != "" {
		verified, err := m.deps.Verifier.Verify(bearer)
		if err != nil {
			return nil, domain.ErrUnauthenticated
		}
		id = verified
	}

	s := m.lookup(ctx, deviceID)
	s.touch(m.now())
	s.authenticate(ctx, id)
	return s, nil
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) lookup(ctx context.Context, deviceID string) *Session {
	m.mu.Lock()
	s, ok := m.sessions[deviceID]
	m.mu.Unlock()
	if ok {
		return s
	}

	created := m.open(ctx, deviceID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[deviceID]; ok {
		created.Cart.Close()
		return s
	}
	m.sessions[deviceID] = created
	m.logger.Printf("session: opened device=%s", deviceID)
	return created
}

func (m *Manager) open(ctx context.Context, deviceID string) *Session {
	store := cart.NewStore(ctx, m.deps.Local(deviceID), cart.Options{
		Debounce: m.deps.Debounce,
		Logger:   m.logger,
	})
	return &Session{
		DeviceID:   deviceID,
		Cart:       store,
		reconciler: cart.NewReconciler(store, m.deps.Carts, m.logger),
		manager:    m,
	}
}

// Run evicts idle sessions until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.deps.IdleTTL / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictIdle(ctx)
		}
	}
}

func (m *Manager) evictIdle(ctx context.Context) {
	now := m.now()
	var idle []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.streams.Load() == 0 && s.idleSince(now) >= m.deps.IdleTTL {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		if err := s.close(ctx); err != nil {
			m.logger.Printf("session: flush on evict device=%s error=%v", s.DeviceID, err)
		}
		m.logger.Printf("session: evicted device=%s", s.DeviceID)
	}
}

// Close flushes and closes every session.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(8)
	for _, s := range all {
		s := s
		g.Go(func() error {
			return s.close(ctx)
		})
	}
	return g.Wait()
}
