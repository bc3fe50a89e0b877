// Package changefeed delivers "something changed" notifications for a key.
// Notifications carry no payload; subscribers reload what they need.
package changefeed

import (
	"context"
	"sync"
)

// Subscription yields one signal per burst of changes. A signal that has not
// been consumed yet absorbs later ones.
type Subscription interface {
	C() <-chan struct{}
	Close() error
}

type Feed interface {
	Subscribe(ctx context.Context, key string) (Subscription, error)
}

type Publisher interface {
	Publish(ctx context.Context, key string) error
}

type subscription struct {
	ch      chan struct{}
	once    sync.Once
	closeFn func()
}

func newSubscription(closeFn func()) *subscription {
	return &subscription{ch: make(chan struct{}, 1), closeFn: closeFn}
}

func (s *subscription) notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

func (s *subscription) C() <-chan struct{} {
	return s.ch
}

func (s *subscription) Close() error {
	s.once.Do(s.closeFn)
	return nil
}
