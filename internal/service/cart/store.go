package cart

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/localstore"
)

const (
	DefaultDebounce     = 700 * time.Millisecond
	defaultWriteTimeout = 10 * time.Second
)

// Snapshot is a read-only view of the cart. Totals are computed from Items
// every time a snapshot is taken.
type Snapshot struct {
	Items      []domain.CartItem `json:"items"`
	TotalItems int               `json:"totalItems"`
	TotalPrice decimal.Decimal   `json:"totalPrice"`
}

type remoteWriter interface {
	ReplaceItems(ctx context.Context, cartID string, items []domain.CartItem) error
}

type Options struct {
	Debounce     time.Duration
	WriteTimeout time.Duration
	Logger       *log.Logger
}

// Store is the cart every page mutates. Mutations apply to memory and the
// local snapshot before returning; while bound to a remote cart they also
// schedule one coalesced remote write per debounce window.
type Store struct {
	local        localstore.Adapter
	debounce     time.Duration
	writeTimeout time.Duration
	logger       *log.Logger

	// writeMu serialises remote writes so they land in the order their
	// snapshots were taken.
	writeMu sync.Mutex

	mu       sync.Mutex
	items    []domain.CartItem
	version  uint64
	cartID   string
	remote   remoteWriter
	bindGen  uint64
	pending  bool
	// failed marks a pending state left behind by a failed write; nothing
	// is scheduled to send it.
	failed   bool
	timer    *time.Timer
	closed   bool
	watchers map[int]func(Snapshot)
	nextID   int

	notifyMu sync.Mutex
}

// NewStore hydrates the cart from the local snapshot.
func NewStore(ctx context.Context, local localstore.Adapter, opts Options) *Store {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Store{
		local:        local,
		debounce:     opts.Debounce,
		writeTimeout: opts.WriteTimeout,
		logger:       opts.Logger,
		items:        local.Load(ctx),
		watchers:     make(map[int]func(Snapshot)),
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotOf(s.items)
}

func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneItems(s.items)
}

func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.TotalItems(s.items)
}

func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.TotalPrice(s.items)
}

// Subscribe registers fn to receive every new snapshot. fn runs on the
// mutating goroutine; it must not block or call back into the Store.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

// AddItem increments an existing line, capped at MaxItemQuantity, without
// moving it. A new product goes to the front. quantity < 1 counts as 1.
func (s *Store) AddItem(ctx context.Context, p domain.Product, quantity int) Snapshot {
	if quantity < 1 {
		quantity = 1
	}
	return s.mutate(ctx, func(items []domain.CartItem) []domain.CartItem {
		for i := range items {
			if items[i].ProductID == p.ID {
				items[i].Quantity = domain.ClampQuantity(items[i].Quantity + quantity)
				return items
			}
		}
		return append([]domain.CartItem{p.CartItem(domain.ClampQuantity(quantity))}, items...)
	})
}

func (s *Store) RemoveItem(ctx context.Context, productID int64) Snapshot {
	return s.mutate(ctx, func(items []domain.CartItem) []domain.CartItem {
		out := items[:0]
		for _, it := range items {
			if it.ProductID != productID {
				out = append(out, it)
			}
		}
		return out
	})
}

// UpdateQuantity sets a line's quantity. Anything below 1 removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, productID int64, quantity int) Snapshot {
	if quantity < 1 {
		return s.RemoveItem(ctx, productID)
	}
	return s.mutate(ctx, func(items []domain.CartItem) []domain.CartItem {
		for i := range items {
			if items[i].ProductID == productID {
				items[i].Quantity = domain.ClampQuantity(quantity)
			}
		}
		return items
	})
}

// Clear empties the cart locally and, when bound, remotely right away. Any
// pending debounced write is dropped so it cannot resurrect old lines.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.stopTimerLocked()
	s.pending, s.failed = false, false
	s.items = []domain.CartItem{}
	s.version++
	s.local.Save(ctx, s.items)
	cartID, remote, gen := s.cartID, s.remote, s.bindGen
	s.publishLocked()

	if remote == nil {
		return nil
	}
	if err := remote.ReplaceItems(ctx, cartID, nil); err != nil {
		s.logger.Printf("cart: clear cart_id=%s error=%v", cartID, err)
		s.markPending(gen)
		return err
	}
	return nil
}

// Flush writes the pending state to the remote cart now.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	gen := s.bindGen
	s.mu.Unlock()
	return s.flush(ctx, gen)
}

// Close stops the debounce timer. It does not flush.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimerLocked()
}

func (s *Store) mutate(ctx context.Context, fn func([]domain.CartItem) []domain.CartItem) Snapshot {
	s.mu.Lock()
	s.items = fn(domain.CloneItems(s.items))
	s.version++
	s.local.Save(ctx, s.items)
	if s.remote != nil {
		s.pending, s.failed = true, false
		s.scheduleLocked()
	}
	return s.publishLocked()
}

// publishLocked releases s.mu and delivers the new snapshot to watchers in
// mutation order.
func (s *Store) publishLocked() Snapshot {
	snap := snapshotOf(s.items)
	watchers := make([]func(Snapshot), 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, fn := range watchers {
		fn(snap)
	}
	return snap
}

func (s *Store) scheduleLocked() {
	if s.closed {
		return
	}
	s.stopTimerLocked()
	gen := s.bindGen
	s.timer = time.AfterFunc(s.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		defer cancel()
		_ = s.flush(ctx, gen)
	})
}

func (s *Store) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// flush writes the current items if a write is pending for binding gen.
// A failed write is not rolled back or retried here; the state stays pending
// for the next mutation, flush or sign-in unless a remote change replaces it
// first.
func (s *Store) flush(ctx context.Context, gen uint64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.bindGen != gen || !s.pending || s.remote == nil {
		s.mu.Unlock()
		return nil
	}
	s.stopTimerLocked()
	s.pending, s.failed = false, false
	cartID, remote := s.cartID, s.remote
	items := domain.CloneItems(s.items)
	s.mu.Unlock()

	if err := remote.ReplaceItems(ctx, cartID, items); err != nil {
		s.logger.Printf("cart: write cart_id=%s items=%d error=%v", cartID, len(items), err)
		s.markPending(gen)
		return err
	}
	return nil
}

func (s *Store) markPending(gen uint64) {
	s.mu.Lock()
	if s.bindGen == gen && s.remote != nil {
		s.pending, s.failed = true, true
	}
	s.mu.Unlock()
}

// attach binds the store to a remote cart, merging remote lines into the
// current ones, and leaves a write pending so both sides converge.
func (s *Store) attach(ctx context.Context, cartID string, remote remoteWriter, remoteItems []domain.CartItem) (uint64, Snapshot) {
	s.mu.Lock()
	s.stopTimerLocked()
	s.bindGen++
	gen := s.bindGen
	s.cartID, s.remote = cartID, remote
	s.items = Merge(s.items, remoteItems)
	s.version++
	s.pending, s.failed = true, false
	s.local.Save(ctx, s.items)
	return gen, s.publishLocked()
}

// detach flushes what is pending for the current binding and unbinds. The
// local snapshot is left as it is.
func (s *Store) detach(ctx context.Context) {
	if err := s.Flush(ctx); err != nil {
		s.logger.Printf("cart: flush before detach error=%v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.bindGen++
	s.cartID, s.remote = "", nil
	s.pending, s.failed = false, false
}

func (s *Store) currentVersion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// applyRemote replaces the cart with the server's view. It is skipped when a
// local edit happened after the reload started or is still scheduled to be
// written; that write will produce its own notification. State left pending
// by a failed write is not scheduled, so the server's view replaces it.
func (s *Store) applyRemote(ctx context.Context, gen, version uint64, remoteItems []domain.CartItem) bool {
	s.mu.Lock()
	if s.bindGen != gen || s.version != version || (s.pending && !s.failed) {
		s.mu.Unlock()
		return false
	}
	if s.failed {
		s.logger.Printf("cart: unsent local state replaced by remote cart_id=%s", s.cartID)
	}
	s.pending, s.failed = false, false
	s.items = AdoptRemote(remoteItems, s.items)
	s.version++
	s.local.Save(ctx, s.items)
	s.publishLocked()
	return true
}

func snapshotOf(items []domain.CartItem) Snapshot {
	return Snapshot{
		Items:      domain.CloneItems(items),
		TotalItems: domain.TotalItems(items),
		TotalPrice: domain.TotalPrice(items),
	}
}
