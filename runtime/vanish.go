package runtime

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vanish-chat/domain"
	"vanish-chat/errors"
	"vanish-chat/repositories"
)

type vanishState int

const (
	stateArmed vanishState = iota
	stateFired
	stateDeleted
	stateFailed
)

type vanishEntry struct {
	ownerID string
	state   vanishState
	timer   *time.Timer
}

// VanishScheduler deletes messages flagged to vanish once their
// deadline passes. It consumes the same snapshots as the UI, so
// re-arming after a restart falls out of the replayed view: a message
// already past its deadline is deleted immediately instead of skipped.
//
// Per message the lifecycle is ARMED -> FIRED -> DELETED or FAILED.
// At most one timer or in-flight delete exists per ID; duplicate
// observations are no-ops. Deletion is best-effort: after the retry
// ceiling the message is abandoned and stays visible.
type VanishScheduler struct {
	log       *slog.Logger
	store     repositories.IMessageRepository
	retryMax  int
	retryBase time.Duration

	mu      sync.Mutex
	entries map[uuid.UUID]*vanishEntry
	stop    chan struct{}
	stopped bool
}

func NewVanishScheduler(log *slog.Logger, store repositories.IMessageRepository,
	retryMax int, retryBase time.Duration) *VanishScheduler {
	return &VanishScheduler{
		log:       log,
		store:     store,
		retryMax:  retryMax,
		retryBase: retryBase,
		entries:   make(map[uuid.UUID]*vanishEntry),
		stop:      make(chan struct{}),
	}
}

// Run blocks until the session context ends, then cancels every armed
// timer. In-flight deletes observe the stop signal and discard their
// result instead of retrying into a dead session.
func (s *VanishScheduler) Run(ctx context.Context) error {
	<-ctx.Done()
	s.Shutdown()
	return nil
}

// Shutdown cancels all timers and rejects further arming.
func (s *VanishScheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	close(s.stop)
	for _, entry := range s.entries {
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
}

// Consume arms a timer for every newly observed vanishing message and
// drops bookkeeping for messages that left the view. Degraded
// snapshots repeat the last good view and change nothing here.
func (s *VanishScheduler) Consume(ctx context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}

	present := make(map[uuid.UUID]struct{}, len(snap.Messages))
	for _, msg := range snap.Messages {
		present[msg.ID] = struct{}{}
		deadline, ok := msg.VanishDeadline()
		if !ok {
			continue
		}
		if _, exists := s.entries[msg.ID]; exists {
			continue
		}
		s.arm(msg.ID, msg.OwnerID, deadline)
	}

	if snap.Degraded {
		return nil
	}

	// A message gone from the view was deleted (by us or externally):
	// its pending timer is obsolete. In-flight deletes (FIRED) finish
	// on their own.
	for id, entry := range s.entries {
		if _, ok := present[id]; ok {
			continue
		}
		switch entry.state {
		case stateArmed:
			entry.timer.Stop()
			delete(s.entries, id)
		case stateDeleted, stateFailed:
			delete(s.entries, id)
		}
	}
	return nil
}

// Armed reports whether a timer or in-flight delete exists for id.
func (s *VanishScheduler) Armed(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	entry, ok := s.entries[id]
	return ok && (entry.state == stateArmed || entry.state == stateFired)
}

// arm schedules the one-shot deletion. A deadline already in the past
// (message observed late, e.g. after a restart) fires immediately.
// Caller holds the lock.
func (s *VanishScheduler) arm(id uuid.UUID, ownerID string, deadline time.Time) {
	delay := time.Until(deadline)
	if delay < 0 {
		delay = 0
	}
	entry := &vanishEntry{ownerID: ownerID, state: stateArmed}
	entry.timer = time.AfterFunc(delay, func() { s.fire(id) })
	s.entries[id] = entry
}

// fire issues the delete with bounded exponential backoff. The store's
// not-found answer counts as success so a second delete of the same ID
// is idempotent.
func (s *VanishScheduler) fire(id uuid.UUID) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if !ok || entry.state != stateArmed || s.stopped {
		s.mu.Unlock()
		return
	}
	entry.state = stateFired
	ownerID := entry.ownerID
	s.mu.Unlock()

	for attempt := 0; ; attempt++ {
		err := s.store.Delete(ownerID, id)
		if err == nil || stderrors.Is(err, errors.ErrNotFound) {
			s.setState(id, stateDeleted)
			return
		}

		if attempt >= s.retryMax {
			s.log.Warn("Vanish delete abandoned after retries",
				"id", id, "attempts", attempt+1, "error", err)
			s.setState(id, stateFailed)
			return
		}

		backoff := s.retryBase << uint(attempt)
		s.log.Debug("Vanish delete failed, retrying",
			"id", id, "attempt", attempt+1, "backoff", backoff, "error", err)
		select {
		case <-s.stop:
			// Session ended mid-retry: discard the result.
			return
		case <-time.After(backoff):
		}
	}
}

func (s *VanishScheduler) setState(id uuid.UUID, state vanishState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[id]; ok {
		entry.state = state
	}
}
