package wishlist

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) List(ctx context.Context, userID string) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id FROM wishlist_items WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		r.logger.Printf("wishlist repo: list user=%s error=%v", userID, err)
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresRepo) Add(ctx context.Context, userID string, productID int64) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO wishlist_items (user_id, product_id)
VALUES ($1, $2)
ON CONFLICT (user_id, product_id) DO NOTHING
`, userID, productID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.ErrNotFound
		}
		r.logger.Printf("wishlist repo: add user=%s product_id=%d error=%v", userID, productID, err)
		return err
	}
	return nil
}

func (r *postgresRepo) Remove(ctx context.Context, userID string, productID int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`, userID, productID); err != nil {
		r.logger.Printf("wishlist repo: remove user=%s product_id=%d error=%v", userID, productID, err)
		return err
	}
	return nil
}
