// Package runtime hosts the live-sync machinery: the per-session sync
// engine, the vanish scheduler and the session coordinator.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vanish-chat/contract"
	"vanish-chat/domain"
	"vanish-chat/errors"
	"vanish-chat/repositories"
)

// watchWarmup bounds the window between the initial replay and the
// store subscription becoming active: a write landing in that window
// produces no notification, so the view is re-listed once after this
// delay.
const watchWarmup = 250 * time.Millisecond

// SyncEngine maintains the ordered view of one user's chat log. It is
// scoped to a single session: the coordinator builds a fresh engine on
// sign-in and cancels its context on sign-out.
//
// On every store change notification the full view is recomputed and
// published to all sinks. A failed read flips the snapshot into
// degraded state while the last-known-good view stays in place; the
// subscription loop itself never dies on a read error.
type SyncEngine struct {
	log         *slog.Logger
	store       repositories.IMessageRepository
	session     domain.Session
	sinks       []contract.SnapshotSink
	sinkTimeout time.Duration

	mu       sync.RWMutex
	view     []domain.Message
	degraded bool
}

func NewSyncEngine(log *slog.Logger, store repositories.IMessageRepository,
	session domain.Session, sinkTimeout time.Duration, sinks ...contract.SnapshotSink) *SyncEngine {
	return &SyncEngine{
		log:         log,
		store:       store,
		session:     session,
		sinks:       sinks,
		sinkTimeout: sinkTimeout,
	}
}

// Run subscribes to the store and loops until the session context is
// cancelled. The initial refresh replays the complete current state
// before any incremental change, so sinks never miss history.
func (e *SyncEngine) Run(ctx context.Context) error {
	changes := e.store.Watch(ctx, e.session.UserID)

	e.refresh(ctx)

	warmup := time.NewTimer(watchWarmup)
	defer warmup.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-warmup.C:
			e.refreshIfChanged(ctx)
		case _, ok := <-changes:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				// Subscription died while the session is still live.
				// Publish the degraded state and let the supervisor
				// restart us, which re-subscribes and replays.
				e.publishDegraded(ctx)
				return fmt.Errorf("%w: change feed closed", errors.ErrStoreUnavailable)
			}
			e.refresh(ctx)
		}
	}
}

// View returns a copy of the last-known-good ordered view.
func (e *SyncEngine) View() []domain.Message {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]domain.Message(nil), e.view...)
}

func (e *SyncEngine) refresh(ctx context.Context) {
	messages, err := e.store.List(e.session.UserID)

	// The session may have ended while the read was in flight; its
	// result belongs to a subscription that no longer exists.
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		e.log.Warn("View refresh failed, keeping last good view",
			"owner", e.session.UserID, "error", err)
		e.publishDegraded(ctx)
		return
	}

	e.mu.Lock()
	e.view = messages
	e.degraded = false
	e.mu.Unlock()

	e.publish(ctx)
}

// refreshIfChanged re-lists and publishes only when the result differs
// from the current view, so the warmup pass stays silent when the
// initial replay already caught everything.
func (e *SyncEngine) refreshIfChanged(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	messages, err := e.store.List(e.session.UserID)
	if err != nil || ctx.Err() != nil {
		return
	}

	e.mu.Lock()
	changed := !sameView(e.view, messages)
	if changed {
		e.view = messages
		e.degraded = false
	}
	e.mu.Unlock()

	if changed {
		e.publish(ctx)
	}
}

func sameView(a, b []domain.Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

func (e *SyncEngine) publishDegraded(ctx context.Context) {
	e.mu.Lock()
	e.degraded = true
	e.mu.Unlock()
	e.publish(ctx)
}

// publish fans the current snapshot out to every sink. Sink failures
// are logged and never propagate into the subscription loop.
func (e *SyncEngine) publish(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	e.mu.RLock()
	snapshot := domain.Snapshot{
		OwnerID:  e.session.UserID,
		Messages: append([]domain.Message(nil), e.view...),
		Degraded: e.degraded,
		At:       time.Now().UTC(),
	}
	e.mu.RUnlock()

	for _, sink := range e.sinks {
		if ctx.Err() != nil {
			return
		}
		sinkCtx, cancel := context.WithTimeout(ctx, e.sinkTimeout)
		if err := sink.Consume(sinkCtx, snapshot); err != nil {
			e.log.Warn("Snapshot sink failed", "owner", e.session.UserID, "error", err)
		}
		cancel()
	}
}
