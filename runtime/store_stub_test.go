package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"vanish-chat/domain"
)

// stubStore is an in-memory IMessageRepository with scriptable failures
// for exercising degraded states and delete retries.
type stubStore struct {
	mu          sync.Mutex
	messages    []domain.Message
	listErr     error
	deleteErr   error
	failDeletes int // -1 = fail every delete, n>0 = fail the first n
	deletes     []time.Time
	watch       chan struct{}
	listGate    chan struct{} // when set, List blocks until it is closed
}

func newStubStore() *stubStore {
	return &stubStore{watch: make(chan struct{}, 1)}
}

func (s *stubStore) notify() {
	select {
	case s.watch <- struct{}{}:
	default:
	}
}

func (s *stubStore) setMessages(messages ...domain.Message) {
	s.mu.Lock()
	s.messages = messages
	s.mu.Unlock()
}

func (s *stubStore) setListErr(err error) {
	s.mu.Lock()
	s.listErr = err
	s.mu.Unlock()
}

func (s *stubStore) setListGate(gate chan struct{}) {
	s.mu.Lock()
	s.listGate = gate
	s.mu.Unlock()
}

func (s *stubStore) deleteTimes() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.deletes...)
}

func (s *stubStore) Create(msg domain.Message) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = uuid.New()
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *stubStore) Delete(ownerID string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, time.Now())

	if s.failDeletes == -1 {
		return s.deleteErr
	}
	if s.failDeletes > 0 {
		s.failDeletes--
		return s.deleteErr
	}

	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	return nil
}

func (s *stubStore) List(ownerID string) ([]domain.Message, error) {
	s.mu.Lock()
	gate := s.listGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]domain.Message(nil), s.messages...), nil
}

func (s *stubStore) Watch(ctx context.Context, ownerID string) <-chan struct{} {
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.watch:
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}
