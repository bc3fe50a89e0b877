package localstore

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/redis/go-redis/v9"
	"storefront/internal/domain"
)

// Redis stores the snapshot of one device under Key(deviceID). Snapshots do
// not expire; a guest cart lives until cleared.
type Redis struct {
	client *redis.Client
	key    string
	logger *log.Logger
}

func NewRedis(client *redis.Client, deviceID string, logger *log.Logger) *Redis {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Redis{client: client, key: Key(deviceID), logger: logger}
}

func (r *Redis) Load(ctx context.Context) []domain.CartItem {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.CartItem{}
	}
	if err != nil {
		r.logger.Printf("localstore: get key=%s error=%v", r.key, err)
		return []domain.CartItem{}
	}

	items, err := decode(data)
	if err != nil {
		r.logger.Printf("localstore: discarding corrupt snapshot key=%s error=%v", r.key, err)
		return []domain.CartItem{}
	}
	return items
}

func (r *Redis) Save(ctx context.Context, items []domain.CartItem) {
	data, err := encode(items)
	if err != nil {
		r.logger.Printf("localstore: encode key=%s error=%v", r.key, err)
		return
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		r.logger.Printf("localstore: set key=%s error=%v", r.key, err)
	}
}
