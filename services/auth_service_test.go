package services

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"vanish-chat/auth"
	"vanish-chat/errors"
	"vanish-chat/repositories"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tokens := auth.NewTokenManager("test-secret-only", time.Hour)
	return NewAuthService(repositories.NewUserRepository(db), tokens)
}

func Test_Register_Then_Login(t *testing.T) {
	req := require.New(t)
	service := newAuthService(t)

	registered, err := service.Register("alice@example.com", "sensible8pass")
	req.NoError(err)
	req.NotEmpty(registered.UserID)
	req.NotEmpty(registered.Token)

	logged, err := service.Login("alice@example.com", "sensible8pass")
	req.NoError(err)
	req.Equal(registered.UserID, logged.UserID)
}

func Test_Login_Wrong_Password(t *testing.T) {
	req := require.New(t)
	service := newAuthService(t)

	_, err := service.Register("alice@example.com", "sensible8pass")
	req.NoError(err)

	_, err = service.Login("alice@example.com", "not-the-password1")
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func Test_Login_Unknown_User(t *testing.T) {
	req := require.New(t)
	service := newAuthService(t)

	_, err := service.Login("ghost@example.com", "whatever123")
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func Test_Register_Rejects_Weak_Credentials(t *testing.T) {
	req := require.New(t)
	service := newAuthService(t)

	_, err := service.Register("notanemail", "sensible8pass")
	req.Error(err)

	_, err = service.Register("alice@example.com", "short1")
	req.Error(err)
}

func Test_Auth_Publishes_Session_Transitions(t *testing.T) {
	req := require.New(t)
	service := newAuthService(t)

	ch := service.Sessions().Subscribe()
	req.Nil(<-ch) // signed out initially

	session, err := service.Register("alice@example.com", "sensible8pass")
	req.NoError(err)

	published := <-ch
	req.NotNil(published)
	req.Equal(session.UserID, published.UserID)

	service.Logout()
	req.Nil(<-ch)
}
