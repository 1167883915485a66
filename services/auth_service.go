package services

import (
	"fmt"
	"time"

	"vanish-chat/auth"
	"vanish-chat/domain"
	"vanish-chat/errors"
	"vanish-chat/repositories"
)

type IAuthService interface {
	Register(email, password string) (domain.Session, error)
	Login(email, password string) (domain.Session, error)
	Logout()
	Sessions() *SessionBus
}

// AuthService is the identity provider: it owns credential checks and
// publishes session lifecycle transitions on its bus.
type AuthService struct {
	users  repositories.IUserRepository
	tokens *auth.TokenManager
	bus    *SessionBus
}

func NewAuthService(users repositories.IUserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens, bus: NewSessionBus()}
}

// Sessions exposes the sign-in/sign-out bus (nil session = signed out).
func (s *AuthService) Sessions() *SessionBus {
	return s.bus
}

func (s *AuthService) Register(email, password string) (domain.Session, error) {
	req := auth.CredentialsRequest{Email: email, Password: password}

	// Validate before any expensive cryptographic operation.
	if err := auth.ValidateCredentials(req); err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// Hashing happens here so the repository never sees plain passwords.
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return domain.Session{}, fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.users.CreateUser(email, hashed)
	if err != nil {
		return domain.Session{}, err // propagates ErrUserAlreadyExists
	}

	return s.openSession(userID, email)
}

func (s *AuthService) Login(email, password string) (domain.Session, error) {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		// Generic error to prevent account enumeration.
		return domain.Session{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return domain.Session{}, errors.ErrInvalidCredentials
	}

	return s.openSession(user.ID, user.Email)
}

// Logout publishes the signed-out state; subscribers tear down their
// per-session resources in response.
func (s *AuthService) Logout() {
	s.bus.Publish(nil)
}

func (s *AuthService) openSession(userID, email string) (domain.Session, error) {
	token, err := s.tokens.Generate(userID, email)
	if err != nil {
		return domain.Session{}, errors.ErrTokenGeneration
	}

	session := domain.Session{
		UserID:   userID,
		Email:    email,
		Token:    token,
		IssuedAt: time.Now().UTC(),
	}
	s.bus.Publish(&session)
	return session, nil
}
