package sessions

import (
	"sync"
	"time"

	"github.com/nextlevelbuilder/larkbot/internal/providers"
)

// session owns an ordered message sequence and an absolute expiry refreshed
// on every append. A session past its expiry is logically absent: the next
// read purges it and sees a fresh conversation.
type session struct {
	messages  []providers.Message
	expiresAt time.Time
}

// Store is an in-memory conversation store. All state is process-local and
// rebuilt from nothing on restart.
//
// Mutation per key is serialized at the call site (one turn at a time per
// conversation under human typing cadence); the store's own lock makes
// access across different keys safe.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	maxTurns int
	sessions map[string]*session
	now      func() time.Time
}

// NewStore creates a store whose sessions expire ttl after the last append
// and hold at most maxTurns user/assistant pairs.
func NewStore(ttl time.Duration, maxTurns int) *Store {
	if ttl < time.Second {
		ttl = time.Second
	}
	if maxTurns < 1 {
		maxTurns = 1
	}
	return &Store{
		ttl:      ttl,
		maxTurns: maxTurns,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// History returns a copy of the live message sequence for key, empty when
// the session is absent or expired. Reads never refresh expiry, and callers
// never observe appends made after the copy is taken.
func (s *Store) History(key string) []providers.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return nil
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.sessions, key)
		return nil
	}

	msgs := make([]providers.Message, len(sess.messages))
	copy(msgs, sess.messages)
	return msgs
}

// Append records one message for key, creating the session if absent and
// refreshing its expiry to now+ttl. When the sequence exceeds 2×maxTurns the
// oldest messages are trimmed; the retained suffix keeps its order.
func (s *Store) Append(key string, msg providers.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.sessions[key]
	if ok && !now.Before(sess.expiresAt) {
		delete(s.sessions, key)
		ok = false
	}
	if !ok {
		sess = &session{}
		s.sessions[key] = sess
	}

	sess.expiresAt = now.Add(s.ttl)
	sess.messages = append(sess.messages, msg)

	cap := s.maxTurns * 2
	if len(sess.messages) > cap {
		trimmed := make([]providers.Message, cap)
		copy(trimmed, sess.messages[len(sess.messages)-cap:])
		sess.messages = trimmed
	}
}

// Len returns the number of stored sessions, expired or not. Tests only.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SetClock overrides the time source. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
