package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

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

type orderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (r *postgresRepo) Create(ctx context.Context, in CreateInput) (string, error) {
	lines := make([]orderLine, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, orderLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return "", err
	}

	var id string
	err = r.pool.QueryRow(ctx, `SELECT create_order_with_validation($1, $2::jsonb, $3::uuid, $4, NULLIF($5, ''), NULLIF($6, ''))::text`,
		in.UserID, string(payload), in.AddressID, string(in.PaymentMethod), strings.ToUpper(in.PromoCode), in.IdempotencyKey,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "22023":
				return "", domain.Invalid("items", pgErr.Message)
			case "P0002", "22P02":
				return "", fmt.Errorf("address %s: %w", in.AddressID, domain.ErrNotFound)
			}
		}
		r.logger.Printf("order repo: create user=%s items=%d error=%v", in.UserID, len(in.Items), err)
		return "", err
	}
	r.logger.Printf("order repo: created user=%s order_id=%s method=%s", in.UserID, id, in.PaymentMethod)
	return id, nil
}

const orderColumns = `id::text, user_id, shipping_address, payment_method, payment_status, fulfillment_status, total_amount::text, currency, COALESCE(tracking_number, ''), created_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o     domain.Order
		total string
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.ShippingAddress, &o.PaymentMethod, &o.PaymentStatus, &o.FulfillmentStatus, &total, &o.Currency, &o.TrackingNumber, &o.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total order_id=%s: %w", o.ID, err)
	}
	o.Items = []domain.OrderItem{}
	return &o, nil
}

func (r *postgresRepo) Get(ctx context.Context, userID, id string) (*domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 AND id::text = $2`
	o, err := scanOrder(r.pool.QueryRow(ctx, q, userID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: get user=%s id=%s error=%v", userID, id, err)
		return nil, err
	}
	if err := r.attachItems(ctx, []*domain.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		r.logger.Printf("order repo: list user=%s error=%v", userID, err)
		return nil, err
	}
	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	result := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		result = append(result, *o)
	}
	return result, nil
}

func (r *postgresRepo) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.pool.Query(ctx, `
SELECT order_id::text, product_id, title, quantity, unit_price::text, subtotal::text
FROM order_items
WHERE order_id::text = ANY($1)
ORDER BY order_id, product_id
`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID        string
			it             domain.OrderItem
			unit, subtotal string
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Title, &it.Quantity, &unit, &subtotal); err != nil {
			return err
		}
		if it.UnitPrice, err = decimal.NewFromString(unit); err != nil {
			return err
		}
		if it.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return err
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func (r *postgresRepo) SetTrackingNumber(ctx context.Context, orderID, trackingNumber string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET tracking_number = $2 WHERE id::text = $1`, orderID, trackingNumber)
	if err != nil {
		r.logger.Printf("order repo: set tracking order_id=%s error=%v", orderID, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) FindPromo(ctx context.Context, code string) (*domain.PromoCode, error) {
	var (
		p                        domain.PromoCode
		percent, maxDisc, minSub string
		expires                  *time.Time
	)
	err := r.pool.QueryRow(ctx, `
SELECT code, percent_off::text, max_discount::text, min_subtotal::text, expires_at
FROM promo_codes
WHERE code = $1 AND is_active
`, strings.ToUpper(strings.TrimSpace(code))).Scan(&p.Code, &percent, &maxDisc, &minSub, &expires)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if p.PercentOff, err = decimal.NewFromString(percent); err != nil {
		return nil, err
	}
	if p.MaxDiscount, err = decimal.NewFromString(maxDisc); err != nil {
		return nil, err
	}
	if p.MinSubtotal, err = decimal.NewFromString(minSub); err != nil {
		return nil, err
	}
	p.ExpiresAt = expires
	return &p, nil
}
