package stream

import (
	"context"
	"sync"

	"fairloan.org/internal/notify"
)

// Stream fan-outs freshly created notifications to all active subscribers
// (SSE clients watching the admin dashboard or an applicant inbox).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan notify.Notification
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{
		subs: make(map[int]chan notify.Notification),
	}
}

// Subscribe registers a subscriber and returns a channel which will receive
// notifications. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan notify.Notification {
	ch := make(chan notify.Notification, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the notification to all subscribers.
func (s *Stream) Publish(n notify.Notification) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- n:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}

// NotificationCreated satisfies the loan service's events sink.
func (s *Stream) NotificationCreated(n notify.Notification) {
	s.Publish(n)
}
