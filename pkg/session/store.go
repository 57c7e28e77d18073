package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/matzehuels/forcegraph/pkg/errors"
)

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID and records the access.
	// Returns a NOT_FOUND error if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Add stores a new session.
	Add(ctx context.Context, sess *Session) error

	// Delete closes and removes a session.
	Delete(ctx context.Context, sessionID string) error

	// List returns all live sessions, oldest first.
	List(ctx context.Context) ([]*Session, error)

	// Cleanup closes and removes idle sessions.
	Cleanup(ctx context.Context) (int, error)

	// Close closes every session.
	Close() error
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int
	idleTTL  time.Duration
}

// NewMemoryStore creates a store holding at most limit sessions (0 means
// unlimited). Sessions idle for longer than idleTTL expire; 0 uses
// DefaultIdleTTL.
func NewMemoryStore(limit int, idleTTL time.Duration) *MemoryStore {
	if idleTTL == 0 {
		idleTTL = DefaultIdleTTL
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		max:      limit,
		idleTTL:  idleTTL,
	}
}

func (s *MemoryStore) expired(sess *Session, now time.Time) bool {
	return now.Sub(sess.IdleSince()) > s.idleTTL
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "session %q not found", sessionID)
	}

	if s.expired(sess, time.Now()) {
		_ = s.Delete(ctx, sessionID)
		return nil, errors.New(errors.ErrCodeNotFound, "session %q expired", sessionID)
	}
	sess.Touch()
	return sess, nil
}

func (s *MemoryStore) Add(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ID]; ok {
		return errors.New(errors.ErrCodeDuplicateID, "session %q already exists", sess.ID)
	}
	if s.max > 0 && len(s.sessions) >= s.max {
		return errors.New(errors.ErrCodeLimit, "session limit reached (%d)", s.max)
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return errors.New(errors.ErrCodeNotFound, "session %q not found", sessionID)
	}
	sess.Close()
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Session, error) {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Cleanup(ctx context.Context) (int, error) {
	now := time.Now()

	s.mu.Lock()
	var stale []*Session
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.Close()
	}
	return len(stale), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.Close()
	}
	return nil
}

// Len returns the number of stored sessions, including expired ones not
// yet cleaned up.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ Store = (*MemoryStore)(nil)
