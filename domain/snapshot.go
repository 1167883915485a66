package domain

import "time"

// Snapshot is the full ordered view of one user's chat log at a point
// in time. It is recomputed on every store notification and published
// to sinks; it is never a diff.
type Snapshot struct {
	OwnerID  string
	Messages []Message
	// Degraded signals that the last store read failed and Messages
	// still holds the last-known-good view.
	Degraded bool
	At       time.Time
}
