package changefeed

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultPGChannel matches the channel used by the cart_items trigger.
const DefaultPGChannel = "cart_changes"

// PGNotify listens on a Postgres NOTIFY channel whose payload is the key.
// Run must be started for subscribers to receive anything.
type PGNotify struct {
	pool    *pgxpool.Pool
	channel string
	logger  *log.Logger
	broker  *Memory
}

func NewPGNotify(pool *pgxpool.Pool, channel string, logger *log.Logger) *PGNotify {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if channel == "" {
		channel = DefaultPGChannel
	}
	return &PGNotify{pool: pool, channel: channel, logger: logger, broker: NewMemory()}
}

func (p *PGNotify) Subscribe(ctx context.Context, key string) (Subscription, error) {
	return p.broker.Subscribe(ctx, key)
}

// Publish issues a NOTIFY. The trigger already covers writes to cart_items,
// so this is only needed for changes made outside that table.
func (p *PGNotify) Publish(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, p.channel, key)
	return err
}

// Run holds a dedicated connection in LISTEN and reconnects with backoff
// until ctx is cancelled.
func (p *PGNotify) Run(ctx context.Context) {
	backoff := 500 * time.Millisecond
	for {
		if ctx.Err() != nil {
			return
		}
		err := p.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		p.logger.Printf("changefeed: listen channel=%s error=%v retry_in=%s", p.channel, err, backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (p *PGNotify) listen(ctx context.Context) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{p.channel}.Sanitize()); err != nil {
		return err
	}
	p.logger.Printf("changefeed: listening channel=%s", p.channel)
	// Anything published while we were disconnected is lost.
	p.broker.Broadcast()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		_ = p.broker.Publish(ctx, n.Payload)
	}
}
