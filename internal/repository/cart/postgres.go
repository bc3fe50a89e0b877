package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"storefront/internal/changefeed"
	"storefront/internal/db"
	"storefront/internal/domain"
)

const getOrCreateAttempts = 3

type postgresRepo struct {
	pool   *pgxpool.Pool
	feed   changefeed.Feed
	logger *log.Logger
	group  singleflight.Group
}

func NewPostgres(pool *pgxpool.Pool, feed changefeed.Feed, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, feed: feed, logger: logger}
}

// GetOrCreateCartID relies on the unique constraint on carts.user_id. Two
// processes racing to create both end up reading the single winning row;
// callers inside this process share one in-flight lookup.
func (r *postgresRepo) GetOrCreateCartID(ctx context.Context, ownerID string) (string, error) {
	if ownerID == "" {
		return "", domain.ErrUnauthenticated
	}
	v, err, _ := r.group.Do(ownerID, func() (interface{}, error) {
		return r.getOrCreate(ctx, ownerID)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *postgresRepo) getOrCreate(ctx context.Context, ownerID string) (string, error) {
	for attempt := 1; attempt <= getOrCreateAttempts; attempt++ {
		var id string
		err := r.pool.QueryRow(ctx, `SELECT id::text FROM carts WHERE user_id = $1`, ownerID).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("cart repo: lookup owner=%s error=%v", ownerID, err)
			return "", err
		}

		err = r.pool.QueryRow(ctx, `
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO NOTHING
RETURNING id::text
`, ownerID).Scan(&id)
		if err == nil {
			r.logger.Printf("cart repo: created owner=%s cart_id=%s", ownerID, id)
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("cart repo: create owner=%s error=%v", ownerID, err)
			return "", err
		}
		r.logger.Printf("cart repo: create owner=%s lost race attempt=%d", ownerID, attempt)
	}
	return "", fmt.Errorf("owner %s: %w", ownerID, ErrCartContention)
}

func (r *postgresRepo) LoadItems(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	const q = `
SELECT ci.product_id, ci.quantity, p.id IS NOT NULL, COALESCE(p.title, ''), COALESCE(p.price, 0)::text, COALESCE(p.image_url, '')
FROM cart_items ci
LEFT JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.position ASC, ci.product_id ASC
`
	rows, err := r.pool.Query(ctx, q, cartID)
	if err != nil {
		r.logger.Printf("cart repo: load cart_id=%s error=%v", cartID, err)
		return nil, err
	}
	defer rows.Close()

	items := []domain.CartItem{}
	var orphans []int64
	for rows.Next() {
		var (
			it     domain.CartItem
			exists bool
			price  string
		)
		if err := rows.Scan(&it.ProductID, &it.Quantity, &exists, &it.Title, &price, &it.ImageURL); err != nil {
			return nil, err
		}
		if !exists {
			orphans = append(orphans, it.ProductID)
			continue
		}
		it.UnitPrice, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse price product_id=%d: %w", it.ProductID, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("cart repo: load rows cart_id=%s error=%v", cartID, err)
		return nil, err
	}

	if len(orphans) > 0 {
		r.pruneOrphans(ctx, cartID, orphans)
	}
	return items, nil
}

func (r *postgresRepo) pruneOrphans(ctx context.Context, cartID string, productIDs []int64) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = ANY($2)`, cartID, productIDs)
	if err != nil {
		r.logger.Printf("cart repo: prune orphans cart_id=%s products=%v error=%v", cartID, productIDs, err)
		return
	}
	r.logger.Printf("cart repo: pruned orphans cart_id=%s count=%d", cartID, tag.RowsAffected())
}

// ReplaceItems deletes every line and inserts items in one transaction, so a
// failure leaves the previous contents in place.
func (r *postgresRepo) ReplaceItems(ctx context.Context, cartID string, items []domain.CartItem) error {
	productIDs := make([]int64, len(items))
	quantities := make([]int32, len(items))
	for i, it := range items {
		productIDs[i] = it.ProductID
		quantities[i] = int32(domain.ClampQuantity(it.Quantity))
	}

	err := db.WithRetry(ctx, r.pool, 2, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return err
		}
		if len(items) > 0 {
			if _, err := tx.Exec(ctx, `
INSERT INTO cart_items (cart_id, product_id, quantity, position)
SELECT $1, x.product_id, x.quantity, (x.ord - 1)::int
FROM unnest($2::bigint[], $3::int[]) WITH ORDINALITY AS x(product_id, quantity, ord)
WHERE x.quantity > 0
`, cartID, productIDs, quantities); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID)
		return err
	})
	if err != nil {
		r.logger.Printf("cart repo: replace cart_id=%s count=%d error=%v", cartID, len(items), err)
		return err
	}
	r.logger.Printf("cart repo: replaced cart_id=%s count=%d", cartID, len(items))
	return nil
}

func (r *postgresRepo) Subscribe(ctx context.Context, cartID string) (changefeed.Subscription, error) {
	if r.feed == nil {
		return nil, errors.New("cart repo: no change feed configured")
	}
	return r.feed.Subscribe(ctx, cartID)
}
