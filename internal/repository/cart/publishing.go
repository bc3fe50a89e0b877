package cart

import (
	"context"
	"io"
	"log"

	"storefront/internal/changefeed"
	"storefront/internal/domain"
)

// WithPublisher announces every successful ReplaceItems on publisher. It is
// used with transports that do not observe database writes themselves.
func WithPublisher(repo Repository, publisher changefeed.Publisher, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &publishingRepo{Repository: repo, publisher: publisher, logger: logger}
}

type publishingRepo struct {
	Repository
	publisher changefeed.Publisher
	logger    *log.Logger
}

func (p *publishingRepo) ReplaceItems(ctx context.Context, cartID string, items []domain.CartItem) error {
	if err := p.Repository.ReplaceItems(ctx, cartID, items); err != nil {
		return err
	}
	if err := p.publisher.Publish(ctx, cartID); err != nil {
		p.logger.Printf("cart repo: publish change cart_id=%s error=%v", cartID, err)
	}
	return nil
}
