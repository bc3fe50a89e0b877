package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"storefront/internal/changefeed"
	"storefront/internal/dbtest"
	"storefront/internal/domain"
)

func insertProduct(ctx context.Context, t *testing.T, pool *pgxpool.Pool, title, price string) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(ctx, `INSERT INTO products (title, price, image_url) VALUES ($1, $2::numeric, 'img') RETURNING id`, title, price).Scan(&id)
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return id
}

func TestPostgres_GetOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	repo := NewPostgres(pool, changefeed.NewMemory(), nil)

	first, err := repo.GetOrCreateCartID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetOrCreateCartID: %v", err)
	}
	second, err := repo.GetOrCreateCartID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetOrCreateCartID again: %v", err)
	}
	if first != second {
		t.Fatalf("expected same cart, got %s and %s", first, second)
	}
}

func TestPostgres_GetOrCreateConcurrentOwnersConverge(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)

	// Separate repos so singleflight does not hide the database race.
	const n = 8
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = NewPostgres(pool, nil, nil).GetOrCreateCartID(ctx, "racer")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("call %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("call %d got cart %s, want %s", i, ids[i], ids[0])
		}
	}
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM carts WHERE user_id = 'racer'`).Scan(&count); err != nil {
		t.Fatalf("count carts: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one cart row, got %d", count)
	}
}

func TestPostgres_GetOrCreateRequiresOwner(t *testing.T) {
	repo := NewPostgres(nil, nil, nil)
	if _, err := repo.GetOrCreateCartID(context.Background(), ""); err != domain.ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestPostgres_ReplaceThenLoadKeepsOrderAndMetadata(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	repo := NewPostgres(pool, nil, nil)

	tee := insertProduct(ctx, t, pool, "Tee", "799.50")
	mug := insertProduct(ctx, t, pool, "Mug", "349.00")

	cartID, err := repo.GetOrCreateCartID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetOrCreateCartID: %v", err)
	}

	err = repo.ReplaceItems(ctx, cartID, []domain.CartItem{
		{ProductID: mug, Quantity: 2, Title: "stale title"},
		{ProductID: tee, Quantity: 1},
	})
	if err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}

	items, err := repo.LoadItems(ctx, cartID)
	if err != nil {
		t.Fatalf("LoadItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %+v", items)
	}
	if items[0].ProductID != mug || items[0].Quantity != 2 || items[0].Title != "Mug" {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if !items[1].UnitPrice.Equal(decimal.RequireFromString("799.5")) {
		t.Fatalf("unexpected price %s", items[1].UnitPrice)
	}

	if err := repo.ReplaceItems(ctx, cartID, nil); err != nil {
		t.Fatalf("ReplaceItems empty: %v", err)
	}
	items, err = repo.LoadItems(ctx, cartID)
	if err != nil {
		t.Fatalf("LoadItems after clear: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty cart, got %+v", items)
	}
}

func TestPostgres_LoadDropsAndPrunesOrphans(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	repo := NewPostgres(pool, nil, nil)

	keep := insertProduct(ctx, t, pool, "Keep", "10")
	gone := insertProduct(ctx, t, pool, "Gone", "20")
	cartID, _ := repo.GetOrCreateCartID(ctx, "user-1")
	if err := repo.ReplaceItems(ctx, cartID, []domain.CartItem{{ProductID: gone, Quantity: 1}, {ProductID: keep, Quantity: 4}}); err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, gone); err != nil {
		t.Fatalf("delete product: %v", err)
	}

	items, err := repo.LoadItems(ctx, cartID)
	if err != nil {
		t.Fatalf("LoadItems: %v", err)
	}
	if len(items) != 1 || items[0].ProductID != keep {
		t.Fatalf("expected only kept product, got %+v", items)
	}

	var rows int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM cart_items WHERE cart_id = $1`, cartID).Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected orphan row to be pruned, %d rows remain", rows)
	}
}

func TestPostgres_LoadKeepsDeactivatedProducts(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	repo := NewPostgres(pool, nil, nil)

	paused := insertProduct(ctx, t, pool, "Paused", "30")
	cartID, _ := repo.GetOrCreateCartID(ctx, "user-1")
	if err := repo.ReplaceItems(ctx, cartID, []domain.CartItem{{ProductID: paused, Quantity: 2}}); err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	if _, err := pool.Exec(ctx, `UPDATE products SET is_active = FALSE WHERE id = $1`, paused); err != nil {
		t.Fatalf("deactivate product: %v", err)
	}

	items, err := repo.LoadItems(ctx, cartID)
	if err != nil {
		t.Fatalf("LoadItems: %v", err)
	}
	if len(items) != 1 || items[0].ProductID != paused || items[0].Quantity != 2 || items[0].Title != "Paused" {
		t.Fatalf("expected deactivated line to be returned, got %+v", items)
	}

	var rows int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM cart_items WHERE cart_id = $1`, cartID).Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected deactivated line to stay stored, %d rows remain", rows)
	}
}
