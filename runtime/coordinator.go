package runtime

import (
	"context"
	"log/slog"
	"time"

	"vanish-chat/contract"
	"vanish-chat/repositories"
	"vanish-chat/runtime/workers"
	"vanish-chat/services"
)

// Coordinator binds the session lifecycle to the sync machinery. For
// every sign-in it builds a fresh engine plus vanish scheduler under a
// session-scoped context; a sign-out or a session switch cancels that
// context, which unsubscribes the engine and stops all armed timers.
// Exactly one engine per session exists at any time, so no snapshot
// ever leaks from one user to the next.
type Coordinator struct {
	log             *slog.Logger
	store           repositories.IMessageRepository
	bus             *services.SessionBus
	sinks           []contract.SnapshotSink
	sinkTimeout     time.Duration
	restartInterval time.Duration
	retryMax        int
	retryBase       time.Duration
}

func NewCoordinator(log *slog.Logger, store repositories.IMessageRepository,
	bus *services.SessionBus, sinkTimeout, restartInterval time.Duration,
	retryMax int, retryBase time.Duration, sinks ...contract.SnapshotSink) *Coordinator {
	return &Coordinator{
		log:             log,
		store:           store,
		bus:             bus,
		sinks:           sinks,
		sinkTimeout:     sinkTimeout,
		restartInterval: restartInterval,
		retryMax:        retryMax,
		retryBase:       retryBase,
	}
}

// Run consumes session transitions until ctx ends. It is itself a
// Worker so it can live under the root supervisor.
func (c *Coordinator) Run(ctx context.Context) error {
	sessions := c.bus.Subscribe()
	defer c.bus.Unsubscribe(sessions)

	var cancel context.CancelFunc
	var stopped chan struct{}
	teardown := func() {
		if cancel == nil {
			return
		}
		cancel()
		// Wait for the old engine and scheduler to exit before anything
		// new is built, so an in-flight read can never outlive its
		// session into the next one.
		<-stopped
		cancel = nil
	}
	defer teardown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case session, ok := <-sessions:
			if !ok {
				return nil
			}

			// Any transition fully replaces the previous subscription.
			teardown()
			if session == nil {
				c.log.Info("Session ended, sync torn down")
				continue
			}

			c.log.Info("Session started, building sync", "user", session.UserID)
			sessionCtx, sessionCancel := context.WithCancel(ctx)
			cancel = sessionCancel

			scheduler := NewVanishScheduler(c.log, c.store, c.retryMax, c.retryBase)
			sinks := append(append([]contract.SnapshotSink(nil), c.sinks...), scheduler)
			engine := NewSyncEngine(c.log, c.store, *session, c.sinkTimeout, sinks...)

			sup := workers.NewSupervisor(c.log, c.restartInterval)
			sup.Add(engine, scheduler)

			stopped = make(chan struct{})
			go func(done chan struct{}) {
				defer close(done)
				sup.Run(sessionCtx)
			}(stopped)
		}
	}
}
