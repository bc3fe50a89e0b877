package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
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

const productColumns = `id, title, COALESCE(description, ''), price::text, currency, COALESCE(image_url, ''), is_active, created_at`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &price, &p.Currency, &p.ImageURL, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price product_id=%d: %w", p.ID, err)
	}
	return &p, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE is_active ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list rows error=%v", err)
		return nil, err
	}
	r.logger.Printf("product repo: list count=%d", len(result))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("product repo: get id=%d not found", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get id=%d error=%v", id, err)
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (title, description, price, currency, image_url, is_active)
VALUES ($1, NULLIF($2, ''), $3::numeric, $4, NULLIF($5, ''), $6)
ON CONFLICT (title) DO UPDATE SET
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    currency = EXCLUDED.currency,
    image_url = EXCLUDED.image_url,
    is_active = EXCLUDED.is_active
RETURNING id, created_at
`
	currency := product.Currency
	if currency == "" {
		currency = "INR"
	}
	res := product
	res.Currency = currency
	err := r.pool.QueryRow(ctx, q,
		product.Title,
		product.Description,
		product.Price.String(),
		currency,
		product.ImageURL,
		product.IsActive,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Printf("product repo: upsert title=%q error=%v", product.Title, err)
		return nil, err
	}
	r.logger.Printf("product repo: upserted title=%q id=%d", res.Title, res.ID)
	return &res, nil
}

func (r *postgresRepo) SubmitReview(ctx context.Context, userID string, productID int64, rating int, comment string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `SELECT submit_product_review($1, $2, $3, $4)::text`, userID, productID, rating, comment).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "22023":
				return "", fmt.Errorf("%w: %s", domain.ErrNotEligible, pgErr.Message)
			case "23503":
				return "", domain.ErrNotFound
			case "23514":
				return "", domain.Invalid("rating", "must be between 1 and 5")
			}
		}
		r.logger.Printf("product repo: review product_id=%d user=%s error=%v", productID, userID, err)
		return "", err
	}
	r.logger.Printf("product repo: review product_id=%d user=%s id=%s", productID, userID, id)
	return id, nil
}
