package localstore

import (
	"context"
	"sync"

	"storefront/internal/domain"
)

// Memory keeps the encoded snapshot in process. It goes through the same
// encoding as Redis so corrupt-data handling behaves the same.
type Memory struct {
	mu   sync.Mutex
	data []byte
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) []domain.CartItem {
	m.mu.Lock()
	data := m.data
	m.mu.Unlock()
	if len(data) == 0 {
		return []domain.CartItem{}
	}
	items, err := decode(data)
	if err != nil {
		return []domain.CartItem{}
	}
	return items
}

func (m *Memory) Save(_ context.Context, items []domain.CartItem) {
	data, err := encode(items)
	if err != nil {
		return
	}
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
}

// SetRaw replaces the stored bytes as-is.
func (m *Memory) SetRaw(data []byte) {
	m.mu.Lock()
	m.data = append([]byte(nil), data...)
	m.mu.Unlock()
}
