package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"vanish-chat/domain"
	"vanish-chat/errors"
	"vanish-chat/moderation"
)

// fakeStore counts create calls and can be forced to fail.
type fakeStore struct {
	mu        sync.Mutex
	created   []domain.Message
	createErr error
}

func (f *fakeStore) Create(msg domain.Message) (domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.Message{}, f.createErr
	}
	msg.ID = uuid.New()
	f.created = append(f.created, msg)
	return msg, nil
}

func (f *fakeStore) Delete(ownerID string, id uuid.UUID) error { return nil }

func (f *fakeStore) List(ownerID string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Message(nil), f.created...), nil
}

func (f *fakeStore) Watch(ctx context.Context, ownerID string) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

func (f *fakeStore) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

var testSession = domain.Session{UserID: "user-1", Email: "alice@example.com"}

func Test_PostMessage_Rejects_Blank_Text(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	service := NewChatService(slog.Default(), store, nil, 15*time.Second)

	for _, text := range []string{"", "   ", "\t\n "} {
		_, err := service.PostMessage(testSession, text, false)
		req.ErrorIs(err, errors.ErrEmptyMessage)
	}
	// Validation failures never reach the store.
	req.Zero(store.createCount())
}

func Test_PostMessage_Attaches_Vanish_Metadata(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	service := NewChatService(slog.Default(), store, nil, 15*time.Second)

	permanent, err := service.PostMessage(testSession, "hello", false)
	req.NoError(err)
	req.Nil(permanent.VanishAfter)

	vanishing, err := service.PostMessage(testSession, "secret", true)
	req.NoError(err)
	req.NotNil(vanishing.VanishAfter)
	req.Equal(15*time.Second, *vanishing.VanishAfter)
	req.Equal("user-1", vanishing.OwnerID)
	req.NotEqual(uuid.Nil, vanishing.ID)
}

func Test_PostMessage_Redacts_Text(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	redactor, err := moderation.NewRedactor([]string{"password"}, '*')
	req.NoError(err)
	service := NewChatService(slog.Default(), store, redactor, 15*time.Second)

	msg, err := service.PostMessage(testSession, "my password is hunter2", false)
	req.NoError(err)
	req.Equal("my ******** is hunter2", msg.Text)
}

func Test_Composer_Clears_On_Success_Keeps_On_Failure(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{createErr: errors.ErrStoreUnavailable}
	service := NewChatService(slog.Default(), store, nil, 15*time.Second)
	composer := NewComposer(service)

	composer.SetText("do not lose me")
	_, err := composer.Submit(testSession)
	req.ErrorIs(err, errors.ErrStoreUnavailable)
	// The draft survives a failed submission for a manual retry.
	req.Equal("do not lose me", composer.Text())

	store.createErr = nil
	_, err = composer.Submit(testSession)
	req.NoError(err)
	req.Empty(composer.Text())
}

func Test_Composer_Vanish_Toggle(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	service := NewChatService(slog.Default(), store, nil, time.Second)
	composer := NewComposer(service)

	req.False(composer.VanishEnabled())
	req.True(composer.ToggleVanish())

	composer.SetText("ephemeral")
	msg, err := composer.Submit(testSession)
	req.NoError(err)
	req.NotNil(msg.VanishAfter)
}
