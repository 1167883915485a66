// Package domain contains core concepts of the chat system.
// This file defines the Message entity and its lifecycle rules.
// Messages are immutable once persisted.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents one entry of a user's private chat log.
// The ID is assigned by the store on creation and never reused.
type Message struct {
	ID        uuid.UUID
	OwnerID   string
	Text      string
	CreatedAt time.Time
	// VanishAfter marks the message for automatic deletion once
	// CreatedAt + VanishAfter has passed. Nil means permanent.
	VanishAfter *time.Duration
}

// Vanishing reports whether the message carries vanish metadata.
func (m Message) Vanishing() bool {
	return m.VanishAfter != nil
}

// VanishDeadline returns the instant after which the message becomes
// eligible for deletion, and false for permanent messages.
func (m Message) VanishDeadline() (time.Time, bool) {
	if m.VanishAfter == nil {
		return time.Time{}, false
	}
	return m.CreatedAt.Add(*m.VanishAfter), true
}
