package seed

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

type promoSeed struct {
	Code        string
	PercentOff  decimal.Decimal
	MaxDiscount decimal.Decimal
	MinSubtotal decimal.Decimal
}

var products = []domain.Product{
	{Title: "Brass Table Lamp", Description: "Hand-finished brass lamp with linen shade", Price: decimal.NewFromInt(1200), Currency: "INR", IsActive: true},
	{Title: "Cotton Throw", Description: "Handloom cotton throw, 130x170cm", Price: decimal.NewFromInt(899), Currency: "INR", IsActive: true},
	{Title: "Ceramic Mug", Description: "Stoneware mug, 350ml", Price: decimal.RequireFromString("349.50"), Currency: "INR", IsActive: true},
	{Title: "Jute Doormat", Description: "Discontinued", Price: decimal.NewFromInt(450), Currency: "INR"},
}

var promos = []promoSeed{
	{Code: "SAVE10", PercentOff: decimal.NewFromInt(10), MaxDiscount: decimal.NewFromInt(200)},
	{Code: "BIG20", PercentOff: decimal.NewFromInt(20), MaxDiscount: decimal.NewFromInt(500), MinSubtotal: decimal.NewFromInt(2000)},
}

// Apply inserts demo catalog data for manual testing. It is idempotent.
func Apply(ctx context.Context, pool *pgxpool.Pool, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	repo := productrepo.NewPostgres(pool, logger)
	for _, p := range products {
		saved, err := repo.Upsert(ctx, p)
		if err != nil {
			return fmt.Errorf("upsert product %q: %w", p.Title, err)
		}
		logger.Printf("seed: product id=%d title=%q active=%t", saved.ID, saved.Title, saved.IsActive)
	}

	for _, p := range promos {
		if err := upsertPromo(ctx, pool, p); err != nil {
			return fmt.Errorf("upsert promo %s: %w", p.Code, err)
		}
	}

	return nil
}

func upsertPromo(ctx context.Context, pool *pgxpool.Pool, p promoSeed) error {
	const q = `
INSERT INTO promo_codes (code, percent_off, max_discount, min_subtotal, is_active)
VALUES ($1, $2::numeric, $3::numeric, $4::numeric, TRUE)
ON CONFLICT (code) DO UPDATE
SET percent_off = EXCLUDED.percent_off,
    max_discount = EXCLUDED.max_discount,
    min_subtotal = EXCLUDED.min_subtotal,
    is_active = TRUE
`
	_, err := pool.Exec(ctx, q, p.Code, p.PercentOff.String(), p.MaxDiscount.String(), p.MinSubtotal.String())
	return err
}
