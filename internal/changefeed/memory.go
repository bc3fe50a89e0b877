package changefeed

import (
	"context"
	"sync"
)

// Memory is an in-process fan-out broker. The network transports use it to
// dispatch what they receive.
type Memory struct {
	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[string]map[*subscription]struct{})}
}

func (m *Memory) Subscribe(_ context.Context, key string) (Subscription, error) {
	var sub *subscription
	sub = newSubscription(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		set := m.subs[key]
		delete(set, sub)
		if len(set) == 0 {
			delete(m.subs, key)
		}
	})

	m.mu.Lock()
	set, ok := m.subs[key]
	if !ok {
		set = make(map[*subscription]struct{})
		m.subs[key] = set
	}
	set[sub] = struct{}{}
	m.mu.Unlock()
	return sub, nil
}

func (m *Memory) Publish(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sub := range m.subs[key] {
		sub.notify()
	}
	return nil
}

// Broadcast signals every subscriber regardless of key. Used after a
// transport reconnects and may have missed messages.
func (m *Memory) Broadcast() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, set := range m.subs {
		for sub := range set {
			sub.notify()
		}
	}
}

// Subscribers reports the number of live subscriptions for key.
func (m *Memory) Subscribers(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[key])
}
