package address

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
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

const addressColumns = `id::text, user_id, COALESCE(label, ''), full_name, phone, line1, city, state, postal_code, country, is_default, is_active, created_at`

func scanAddress(row pgx.Row) (*domain.Address, error) {
	var a domain.Address
	if err := row.Scan(&a.ID, &a.UserID, &a.Label, &a.FullName, &a.Phone, &a.Line1, &a.City, &a.State, &a.PostalCode, &a.Country, &a.IsDefault, &a.IsActive, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *postgresRepo) ListActive(ctx context.Context, userID string) ([]domain.Address, error) {
	q := `SELECT ` + addressColumns + ` FROM addresses WHERE user_id = $1 AND is_active ORDER BY is_default DESC, created_at ASC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		r.logger.Printf("address repo: list user=%s error=%v", userID, err)
		return nil, err
	}
	defer rows.Close()

	result := []domain.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *postgresRepo) Get(ctx context.Context, userID, id string) (*domain.Address, error) {
	q := `SELECT ` + addressColumns + ` FROM addresses WHERE user_id = $1 AND id::text = $2 AND is_active`
	a, err := scanAddress(r.pool.QueryRow(ctx, q, userID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("address repo: get user=%s id=%s error=%v", userID, id, err)
		return nil, err
	}
	return a, nil
}

func (r *postgresRepo) Create(ctx context.Context, a domain.Address) (*domain.Address, error) {
	q := `
INSERT INTO addresses (user_id, label, full_name, phone, line1, city, state, postal_code, country, is_default)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, COALESCE(NULLIF($9, ''), 'IN'), $10)
RETURNING ` + addressColumns
	created, err := scanAddress(r.pool.QueryRow(ctx, q,
		a.UserID, a.Label, a.FullName, a.Phone, a.Line1, a.City, a.State, a.PostalCode, a.Country, a.IsDefault,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("address repo: create user=%s error=%v", a.UserID, err)
		return nil, err
	}
	r.logger.Printf("address repo: created user=%s id=%s default=%t", created.UserID, created.ID, created.IsDefault)
	return created, nil
}

func (r *postgresRepo) Deactivate(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE addresses
SET is_active = FALSE, is_default = FALSE
WHERE user_id = $1 AND id::text = $2 AND is_active
`, userID, id)
	if err != nil {
		r.logger.Printf("address repo: deactivate user=%s id=%s error=%v", userID, id, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) SetDefault(ctx context.Context, userID, id string) error {
	_, err := r.pool.Exec(ctx, `SELECT set_default_address($1, $2::uuid)`, userID, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "P0002" || pgErr.Code == "22P02") {
			return domain.ErrNotFound
		}
		r.logger.Printf("address repo: set default user=%s id=%s error=%v", userID, id, err)
		return err
	}
	return nil
}
