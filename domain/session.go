package domain

import "time"

// Session is the result of a successful authentication.
// It is passed explicitly to every component scoped to a signed-in user.
type Session struct {
	UserID   string
	Email    string
	Token    string
	IssuedAt time.Time
}
