package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront/internal/changefeed"
	"storefront/internal/domain"
	"storefront/internal/localstore"
)

const testDebounce = 30 * time.Millisecond

type fakeRemote struct {
	mu       sync.Mutex
	carts    map[string]string
	items    map[string][]domain.CartItem
	writes   [][]domain.CartItem
	writeErr error
	loadErr  error
	feed     *changefeed.Memory
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		carts: make(map[string]string),
		items: make(map[string][]domain.CartItem),
		feed:  changefeed.NewMemory(),
	}
}

func (f *fakeRemote) GetOrCreateCartID(_ context.Context, ownerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.carts[ownerID]; ok {
		return id, nil
	}
	id := uuid.NewString()
	f.carts[ownerID] = id
	return id, nil
}

func (f *fakeRemote) LoadItems(_ context.Context, cartID string) ([]domain.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return domain.CloneItems(f.items[cartID]), nil
}

func (f *fakeRemote) ReplaceItems(ctx context.Context, cartID string, items []domain.CartItem) error {
	f.mu.Lock()
	f.writes = append(f.writes, domain.CloneItems(items))
	if f.writeErr != nil {
		err := f.writeErr
		f.mu.Unlock()
		return err
	}
	f.items[cartID] = domain.CloneItems(items)
	f.mu.Unlock()
	return f.feed.Publish(ctx, cartID)
}

func (f *fakeRemote) Subscribe(ctx context.Context, cartID string) (changefeed.Subscription, error) {
	return f.feed.Subscribe(ctx, cartID)
}

// set simulates a write by another device.
func (f *fakeRemote) set(t *testing.T, ownerID string, items ...domain.CartItem) string {
	t.Helper()
	id, err := f.GetOrCreateCartID(context.Background(), ownerID)
	require.NoError(t, err)
	f.mu.Lock()
	f.items[id] = items
	f.mu.Unlock()
	return id
}

func (f *fakeRemote) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeRemote) lastWrite() []domain.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return nil
	}
	return f.writes[len(f.writes)-1]
}

func product(id int64, price int64) domain.Product {
	return domain.Product{ID: id, Title: "product", Price: decimal.NewFromInt(price), IsActive: true}
}

func newTestStore(t *testing.T, local localstore.Adapter) *Store {
	t.Helper()
	if local == nil {
		local = localstore.NewMemory()
	}
	s := NewStore(context.Background(), local, Options{Debounce: testDebounce})
	t.Cleanup(s.Close)
	return s
}

func TestStore_TotalsAreDerivedFromItems(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)

	s.AddItem(ctx, product(1, 100), 2)
	snap := s.AddItem(ctx, product(2, 50), 1)

	assert.Equal(t, 3, snap.TotalItems)
	assert.True(t, snap.TotalPrice.Equal(decimal.NewFromInt(250)), snap.TotalPrice.String())
	assert.Equal(t, 3, s.TotalItems())
	assert.True(t, s.TotalPrice().Equal(decimal.NewFromInt(250)))
}

func TestStore_AddItemInsertsNewAtFrontAndIncrementsInPlace(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)

	s.AddItem(ctx, product(1, 10), 1)
	s.AddItem(ctx, product(2, 10), 1)
	snap := s.AddItem(ctx, product(1, 10), 3)

	assert.Equal(t, []int64{2, 1}, ids(snap.Items))
	assert.Equal(t, 4, quantities(snap.Items)[1])
}

func TestStore_AddItemCapsQuantity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)

	s.AddItem(ctx, product(1, 10), 500)
	snap := s.AddItem(ctx, product(1, 10), 600)

	assert.Equal(t, domain.MaxItemQuantity, snap.Items[0].Quantity)
}

func TestStore_AddItemDefaultsToOne(t *testing.T) {
	snap := newTestStore(t, nil).AddItem(context.Background(), product(1, 10), 0)
	assert.Equal(t, 1, snap.Items[0].Quantity)
}

func TestStore_UpdateQuantityBelowOneRemoves(t *testing.T) {
	ctx := context.Background()
	for _, qty := range []int{0, -5} {
		s := newTestStore(t, nil)
		s.AddItem(ctx, product(1, 10), 2)
		s.AddItem(ctx, product(2, 10), 1)

		snap := s.UpdateQuantity(ctx, 1, qty)

		assert.Equal(t, []int64{2}, ids(snap.Items), "qty=%d", qty)
	}
}

func TestStore_UpdateQuantityClampsAndIgnoresUnknown(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	s.AddItem(ctx, product(1, 10), 1)

	snap := s.UpdateQuantity(ctx, 1, 5000)
	assert.Equal(t, domain.MaxItemQuantity, snap.Items[0].Quantity)

	snap = s.UpdateQuantity(ctx, 42, 3)
	assert.Equal(t, []int64{1}, ids(snap.Items))
}

func TestStore_MutationsPersistLocally(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewMemory()
	s := newTestStore(t, local)

	s.AddItem(ctx, product(1, 10), 2)
	s.AddItem(ctx, product(2, 10), 1)
	s.RemoveItem(ctx, 2)

	reopened := newTestStore(t, local)
	assert.Equal(t, map[int64]int{1: 2}, quantities(reopened.Items()))

	s.RemoveItem(ctx, 1)
	assert.Empty(t, local.Load(ctx))
}

func TestStore_SubscribersSeeEverySnapshotInOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)

	var seen []int
	cancel := s.Subscribe(func(snap Snapshot) { seen = append(seen, snap.TotalItems) })
	s.AddItem(ctx, product(1, 10), 1)
	s.AddItem(ctx, product(1, 10), 1)
	cancel()
	s.AddItem(ctx, product(1, 10), 1)

	assert.Equal(t, []int{1, 2}, seen)
}

func TestStore_AnonymousNeverWritesRemotely(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)

	s.AddItem(ctx, product(1, 10), 1)
	require.NoError(t, s.Flush(ctx))
	require.NoError(t, s.Clear(ctx))

	assert.Empty(t, s.Items())
}

func signedIn(t *testing.T, remote *fakeRemote, owner string) (*Store, *Reconciler) {
	t.Helper()
	s := newTestStore(t, nil)
	r := NewReconciler(s, remote, nil)
	t.Cleanup(r.Close)
	require.NoError(t, r.SetOwner(context.Background(), owner))
	return s, r
}

func TestStore_DebounceCoalescesBurstIntoOneWrite(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	s, _ := signedIn(t, remote, "user-1")
	before := remote.writeCount()

	s.AddItem(ctx, product(1, 10), 1)
	s.AddItem(ctx, product(2, 10), 1)
	s.UpdateQuantity(ctx, 1, 4)

	require.Eventually(t, func() bool { return remote.writeCount() == before+1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testDebounce)
	assert.Equal(t, before+1, remote.writeCount())
	assert.Equal(t, map[int64]int{1: 4, 2: 1}, quantities(remote.lastWrite()))
}

func TestStore_ClearWritesImmediatelyAndDropsPendingWrite(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	s, _ := signedIn(t, remote, "user-1")
	before := remote.writeCount()

	s.AddItem(ctx, product(1, 10), 3)
	require.NoError(t, s.Clear(ctx))

	assert.Equal(t, before+1, remote.writeCount())
	assert.Empty(t, remote.lastWrite())
	time.Sleep(3 * testDebounce)
	assert.Equal(t, before+1, remote.writeCount())
	assert.Empty(t, s.Items())
}

func TestStore_FailedWriteKeepsLocalStateAndIsRetriedByFlush(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	s, _ := signedIn(t, remote, "user-1")
	before := remote.writeCount()

	remote.mu.Lock()
	remote.writeErr = errors.New("db down")
	remote.mu.Unlock()

	s.AddItem(ctx, product(1, 10), 2)
	require.Eventually(t, func() bool { return remote.writeCount() == before+1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, map[int64]int{1: 2}, quantities(s.Items()))

	time.Sleep(3 * testDebounce)
	assert.Equal(t, before+1, remote.writeCount(), "no automatic retry")

	remote.mu.Lock()
	remote.writeErr = nil
	remote.mu.Unlock()
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, map[int64]int{1: 2}, quantities(remote.lastWrite()))
}
