// Package localstore keeps the device-local cart snapshot.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/domain"
)

const snapshotVersion = 1

// Adapter loads and saves a whole-cart snapshot. Load never fails: missing or
// unreadable data yields an empty cart. Save overwrites the snapshot and
// reports nothing back; last writer wins.
type Adapter interface {
	Load(ctx context.Context) []domain.CartItem
	Save(ctx context.Context, items []domain.CartItem)
}

type snapshot struct {
	Version int               `json:"version"`
	Items   []domain.CartItem `json:"items"`
}

var errUnknownVersion = errors.New("unknown snapshot version")

// Key is the storage key for a device's snapshot.
func Key(deviceID string) string {
	return fmt.Sprintf("storefront:cart:v%d:%s", snapshotVersion, deviceID)
}

func encode(items []domain.CartItem) ([]byte, error) {
	return json.Marshal(snapshot{Version: snapshotVersion, Items: domain.CloneItems(items)})
}

// decode accepts the versioned envelope and the older bare array form.
func decode(data []byte) ([]domain.CartItem, error) {
	var items []domain.CartItem
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		return sanitize(items), nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %d", errUnknownVersion, snap.Version)
	}
	return sanitize(snap.Items), nil
}

// sanitize drops lines that could not have been written by the cart: bad ids,
// non-positive quantities and duplicates. Quantities above the cap are clamped.
func sanitize(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if it.ProductID <= 0 || it.Quantity < 1 {
			continue
		}
		if _, dup := seen[it.ProductID]; dup {
			continue
		}
		seen[it.ProductID] = struct{}{}
		it.Quantity = domain.ClampQuantity(it.Quantity)
		out = append(out, it)
	}
	return out
}
