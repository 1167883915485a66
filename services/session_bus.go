package services

import (
	"sync"

	"vanish-chat/domain"
)

// SessionBus broadcasts sign-in / sign-out transitions. A nil session
// means signed out. Every new subscriber immediately receives the
// current state, so late subscribers never miss the active session.
type SessionBus struct {
	mu          sync.Mutex
	current     *domain.Session
	subscribers map[chan *domain.Session]struct{}
	closed      bool
}

func NewSessionBus() *SessionBus {
	return &SessionBus{subscribers: make(map[chan *domain.Session]struct{})}
}

// Subscribe registers a listener. The channel is buffered and seeded
// with the current session state.
func (b *SessionBus) Subscribe() chan *domain.Session {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *domain.Session, 4)
	ch <- b.current
	if !b.closed {
		b.subscribers[ch] = struct{}{}
	} else {
		close(ch)
	}
	return ch
}

// Unsubscribe removes and closes a listener channel.
func (b *SessionBus) Unsubscribe(ch chan *domain.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// Publish records the new state and fans it out. A slow subscriber with
// a full buffer is skipped rather than blocking the publisher; it will
// observe the latest state on its next receive anyway.
func (b *SessionBus) Publish(s *domain.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.current = s
	for ch := range b.subscribers {
		select {
		case ch <- s:
		default:
		}
	}
}

// Close terminates the bus and closes all subscriber channels.
func (b *SessionBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = make(map[chan *domain.Session]struct{})
}
