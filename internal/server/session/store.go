package session

import (
	"context"
	"encoding/json"
	"time"
)

// Store persists sessions keyed by id. Load returns common.ErrorNotFound
// for unknown or lapsed ids.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	// Replace rewrites an existing record with the session's data and
	// expiry. It never creates one and reports common.ErrorNotFound when
	// the record is gone, so an ended session cannot be written back.
	Replace(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

func encode(s *Session) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Marshal(s)
}

func decode(data []byte) (*Session, error) {
	s := &Session{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

func ttlFor(s *Session, now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ExpiresAt.Sub(now)
}
