package test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"vanish-chat/auth"
	"vanish-chat/domain"
	"vanish-chat/mocks"
	"vanish-chat/moderation"
	"vanish-chat/repositories"
	"vanish-chat/runtime"
	"vanish-chat/services"
)

func Test_Scenario(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := require.New(t)

	cfg, err := LoadConfig()
	req.NoError(err)

	// Reduced to 16 Mo for testing (avoid 20 Go of storage)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	t.Cleanup(func() { db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	messages := repositories.NewMessageRepository(db, log)
	users := repositories.NewUserRepository(db)

	tokens := auth.NewTokenManager("integration-test-secret", time.Hour)
	authService := services.NewAuthService(users, tokens)

	redactor, err := moderation.NewRedactor([]string{"classified"}, '*')
	req.NoError(err)
	chatService := services.NewChatService(log, messages, redactor, cfg.VanishAfter)

	// Snapshots flow into a channel through a mocked sink so the test
	// can assert on every published view.
	ctrl := gomock.NewController(t)
	snapshots := make(chan domain.Snapshot, 64)
	sink := mocks.NewMockSnapshotSink(ctrl)
	sink.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, s domain.Snapshot) error {
			snapshots <- s
			return nil
		}).
		AnyTimes()

	coordinator := runtime.NewCoordinator(log, messages, authService.Sessions(),
		cfg.SinkTimeout, cfg.RestartInterval, cfg.DeleteRetryMax, cfg.DeleteRetryBase, sink)
	go func() {
		req.NoError(coordinator.Run(ctx))
	}()

	// When a user signs up, the sync engine replays the empty history
	session, err := authService.Register("alice@example.com", "sup3rb pass")
	req.NoError(err)
	req.NotEmpty(session.Token)
	waitFor(t, cfg, snapshots, func(s domain.Snapshot) bool {
		return s.OwnerID == session.UserID && len(s.Messages) == 0
	})

	// When a permanent message is posted, it shows up in the live view
	posted, err := chatService.PostMessage(session, "my classified notes", false)
	req.NoError(err)
	req.Equal("my ********** notes", posted.Text)
	waitFor(t, cfg, snapshots, func(s domain.Snapshot) bool {
		return len(s.Messages) == 1 && s.Messages[0].Text == "my ********** notes"
	})

	// When a vanishing message is posted, it appears and later vanishes
	vanishing, err := chatService.PostMessage(session, "this message will self destruct", true)
	req.NoError(err)
	req.NotNil(vanishing.VanishAfter)
	waitFor(t, cfg, snapshots, func(s domain.Snapshot) bool {
		return len(s.Messages) == 2
	})
	waitFor(t, cfg, snapshots, func(s domain.Snapshot) bool {
		return len(s.Messages) == 1 && s.Messages[0].Text == "my ********** notes"
	})

	// The vanished message is gone from the store as well
	remaining, err := chatService.History(session)
	req.NoError(err)
	req.Equal([]string{"my ********** notes"}, lo.Map(remaining, func(m domain.Message, _ int) string {
		return m.Text
	}))

	// When the user signs back in, the permanent history is replayed
	authService.Logout()
	session, err = authService.Login("alice@example.com", "sup3rb pass")
	req.NoError(err)
	waitFor(t, cfg, snapshots, func(s domain.Snapshot) bool {
		return s.OwnerID == session.UserID && len(s.Messages) == 1
	})
}

// waitFor drains snapshots until one satisfies the predicate.
func waitFor(t *testing.T, cfg Config, snapshots <-chan domain.Snapshot, ok func(domain.Snapshot) bool) {
	t.Helper()
	deadline := time.After(cfg.WaitTimeout)
	for {
		select {
		case s := <-snapshots:
			if ok(s) {
				return
			}
		case <-deadline:
			t.Fatal("Timeout: expected snapshot never published")
		}
	}
}
