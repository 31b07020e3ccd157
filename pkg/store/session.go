package store

import (
	"time"

	"ai-diagnosis-be/pkg/followup"
)

// Session is the per-conversation aggregate: identity, activity timestamps
// and the follow-up manager that owns the question queue, answer ledger and
// boost accumulator. One conversation owns one Session; it must not be
// mutated from two goroutines concurrently.
type Session struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`

	FollowUps *followup.Manager `json:"-"`
}

// SessionSnapshot is the serialization-safe form of a Session, suitable for
// an external persistence store.
type SessionSnapshot struct {
	ID           string            `json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActiveAt time.Time         `json:"last_active_at"`
	FollowUps    followup.Snapshot `json:"follow_ups"`
}

// NewSession creates a fresh session around a follow-up manager.
func NewSession(id string, mgr *followup.Manager) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		LastActiveAt: now,
		FollowUps:    mgr,
	}
}

// Touch updates the last-activity timestamp.
func (s *Session) Touch() {
	s.LastActiveAt = time.Now().UTC()
}

// Snapshot exports the session for persistence.
func (s *Session) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		ID:           s.ID,
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt,
		FollowUps:    s.FollowUps.Export(),
	}
}

// Restore rebuilds a session from a snapshot using the given manager, which
// is cleared and loaded with the snapshot's follow-up state.
func Restore(snap SessionSnapshot, mgr *followup.Manager) *Session {
	mgr.Import(snap.FollowUps)
	session := &Session{
		ID:           snap.ID,
		CreatedAt:    snap.CreatedAt,
		LastActiveAt: snap.LastActiveAt,
		FollowUps:    mgr,
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	return session
}
