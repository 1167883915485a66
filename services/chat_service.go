package services

import (
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"vanish-chat/domain"
	"vanish-chat/errors"
	"vanish-chat/moderation"
	"vanish-chat/repositories"
)

type IChatService interface {
	PostMessage(session domain.Session, text string, vanish bool) (domain.Message, error)
	History(session domain.Session) ([]domain.Message, error)
}

// ChatService implements the compose/submit flow: it validates and
// redacts text, attaches vanish metadata, and hands the record to the
// store. Display updates come back through the sync engine, not from
// here.
type ChatService struct {
	log         *slog.Logger
	messages    repositories.IMessageRepository
	redactor    *moderation.Redactor
	vanishAfter time.Duration
}

func NewChatService(log *slog.Logger, messages repositories.IMessageRepository,
	redactor *moderation.Redactor, vanishAfter time.Duration) *ChatService {
	return &ChatService{
		log:         log,
		messages:    messages,
		redactor:    redactor,
		vanishAfter: vanishAfter,
	}
}

// PostMessage validates and persists a new message. Empty or
// whitespace-only text is rejected before the store is contacted.
func (s *ChatService) PostMessage(session domain.Session, text string, vanish bool) (domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, errors.ErrEmptyMessage
	}

	if s.redactor != nil {
		text = s.redactor.Redact(text)
	}

	msg := domain.Message{
		OwnerID:     session.UserID,
		Text:        text,
		CreatedAt:   time.Now().UTC(),
		VanishAfter: lo.Ternary[*time.Duration](vanish, lo.ToPtr(s.vanishAfter), nil),
	}

	created, err := s.messages.Create(msg)
	if err != nil {
		s.log.Warn("Message creation failed", "owner", session.UserID, "error", err)
		return domain.Message{}, err
	}
	return created, nil
}

// History returns the full ordered log for the session's user.
func (s *ChatService) History(session domain.Session) ([]domain.Message, error) {
	return s.messages.List(session.UserID)
}
