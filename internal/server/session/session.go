// Package session implements server-side sessions: the record, its
// backing stores, the signed cookie carrying its id, and the request stage
// that resumes or issues a session and resolves the current user.
package session

import (
	"sync"
	"time"
)

// Session is the server-held state correlated with one client.
// All mutators are safe for use by concurrent goroutines of one request.
type Session struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id,omitempty"`
	ReturnTo  string              `json:"return_to,omitempty"`
	Flash     map[string][]string `json:"flash,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	TouchedAt time.Time           `json:"touched_at"`
	ExpiresAt time.Time           `json:"expires_at"`

	mu          sync.Mutex
	dirty       bool
	touched     bool
	isNew       bool
	previousIDs []string
}

func newSession(id string, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		TouchedAt: now,
		ExpiresAt: now.Add(ttl),
		isNew:     true,
	}
}

// Expired reports whether the session lapsed at or before now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// touch extends the expiry when the last touch is at least threshold old.
// The new expiry is never earlier than the old one.
func (s *Session) touch(now time.Time, ttl, threshold time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.TouchedAt) < threshold {
		return false
	}

	if next := now.Add(ttl); next.After(s.ExpiresAt) {
		s.ExpiresAt = next
	}
	s.TouchedAt = now
	s.touched = true
	return true
}

// Login binds the session to a principal.
func (s *Session) Login(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UserID = userID
	s.dirty = true
}

// Logout drops the principal reference.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UserID != "" {
		s.UserID = ""
		s.dirty = true
	}
}

func (s *Session) Principal() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.UserID
}

// SetReturnTo remembers where to send the user after logging in.
func (s *Session) SetReturnTo(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReturnTo = path
	s.dirty = true
}

// TakeReturnTo returns and clears the remembered path.
func (s *Session) TakeReturnTo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.ReturnTo
	if path != "" {
		s.ReturnTo = ""
		s.dirty = true
	}
	return path
}

// Push appends a flash message to category.
func (s *Session) Push(category, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Flash == nil {
		s.Flash = make(map[string][]string)
	}
	s.Flash[category] = append(s.Flash[category], text)
	s.dirty = true
}

// Drain returns and removes every message in category.
func (s *Session) Drain(category string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.Flash[category]
	if len(msgs) == 0 {
		return nil
	}
	delete(s.Flash, category)
	s.dirty = true
	return msgs
}

// regenerate moves the session to a fresh id, keeping its data.
func (s *Session) regenerate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previousIDs = append(s.previousIDs, s.ID)
	s.ID = id
	s.isNew = true
	s.dirty = true
}

// pending reports what commit has to do, resetting the flags.
func (s *Session) pending() (isNew, dirty, touched bool, stale []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	isNew, dirty, touched, stale = s.isNew, s.dirty, s.touched, s.previousIDs
	s.isNew, s.dirty, s.touched, s.previousIDs = false, false, false, nil
	return
}
