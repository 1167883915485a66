package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"vanish-chat/domain"
	"vanish-chat/errors"
)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Create_And_List_Ordered(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), slog.Default())

	owner := "user-1"
	at := time.Now().UTC()
	_, err := repository.Create(domain.Message{OwnerID: owner, Text: "second", CreatedAt: at.Add(time.Minute)})
	req.NoError(err)
	_, err = repository.Create(domain.Message{OwnerID: owner, Text: "first", CreatedAt: at})
	req.NoError(err)
	_, err = repository.Create(domain.Message{OwnerID: owner, Text: "third", CreatedAt: at.Add(2 * time.Minute)})
	req.NoError(err)

	messages, err := repository.List(owner)
	req.NoError(err)
	req.Len(messages, 3)
	req.Equal("first", messages[0].Text)
	req.Equal("second", messages[1].Text)
	req.Equal("third", messages[2].Text)
	for i := 1; i < len(messages); i++ {
		req.False(messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
	}
}

func Test_List_TieBreak_Stable(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), slog.Default())

	owner := "user-1"
	at := time.Now().UTC()
	// Two messages sharing the exact same timestamp.
	_, err := repository.Create(domain.Message{OwnerID: owner, Text: "a", CreatedAt: at})
	req.NoError(err)
	_, err = repository.Create(domain.Message{OwnerID: owner, Text: "b", CreatedAt: at})
	req.NoError(err)

	first, err := repository.List(owner)
	req.NoError(err)
	req.Len(first, 2)

	// Repeated reads (fresh subscriptions) must produce the same order.
	for i := 0; i < 5; i++ {
		again, err := repository.List(owner)
		req.NoError(err)
		req.Equal(first, again)
	}
}

func Test_Owners_Are_Isolated(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), slog.Default())

	at := time.Now().UTC()
	_, err := repository.Create(domain.Message{OwnerID: "alice", Text: "mine", CreatedAt: at})
	req.NoError(err)
	_, err = repository.Create(domain.Message{OwnerID: "bob", Text: "his", CreatedAt: at})
	req.NoError(err)

	messages, err := repository.List("alice")
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("mine", messages[0].Text)
}

func Test_Delete_Removes_And_Is_NotFound_After(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), slog.Default())

	owner := "user-1"
	created, err := repository.Create(domain.Message{OwnerID: owner, Text: "bye", CreatedAt: time.Now().UTC()})
	req.NoError(err)

	req.NoError(repository.Delete(owner, created.ID))

	messages, err := repository.List(owner)
	req.NoError(err)
	req.Empty(messages)

	// Second delete of the same ID surfaces the store's not-found
	// answer; callers treat it as an acknowledgement.
	err = repository.Delete(owner, created.ID)
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_Vanish_Metadata_Survives_Roundtrip(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), slog.Default())

	owner := "user-1"
	created, err := repository.Create(domain.Message{
		OwnerID:     owner,
		Text:        "this message will self destruct",
		CreatedAt:   time.Now().UTC(),
		VanishAfter: lo.ToPtr(15 * time.Second),
	})
	req.NoError(err)

	messages, err := repository.List(owner)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(created.ID, messages[0].ID)
	req.NotNil(messages[0].VanishAfter)
	req.Equal(15*time.Second, *messages[0].VanishAfter)
}

func Test_Watch_Notifies_On_Change(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	owner := "user-1"
	changes := repository.Watch(ctx, owner)

	_, err := repository.Create(domain.Message{OwnerID: owner, Text: "ping", CreatedAt: time.Now().UTC()})
	req.NoError(err)

	select {
	case _, ok := <-changes:
		req.True(ok)
	case <-time.After(5 * time.Second):
		req.Fail("expected a change notification after create")
	}

	// Cancelling the context closes the feed, possibly after a few
	// still-buffered notifications.
	cancel()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
		case <-deadline:
			req.Fail("expected the change feed to close on cancellation")
		}
	}
}
