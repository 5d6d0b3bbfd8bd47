// Package session keeps conversation histories in memory and evicts the ones
// that have been idle longer than a TTL.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/crystaldolphin/waypoint/internal/schema"
)

// DefaultTTL is how long a conversation may stay idle before Sweep removes it.
const DefaultTTL = 30 * time.Minute

// ErrNotFound is returned when a conversation id is not in the store.
var ErrNotFound = errors.New("conversation not found")

// Store is a keyed, expiring map of conversations. It is safe for
// concurrent use.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	now           func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		conversations: make(map[string]*Conversation),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the conversation for id, creating an empty one on
// first reference.
func (s *Store) GetOrCreate(id string) *Conversation {
	s.mu.RLock()
	c, ok := s.conversations[id]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(id)
}

func (s *Store) getOrCreateLocked(id string) *Conversation {
	if c, ok := s.conversations[id]; ok {
		return c
	}
	now := s.now()
	c := &Conversation{
		ID:          id,
		CreatedAt:   now,
		messages:    schema.NewMessages(),
		lastUpdated: now,
	}
	s.conversations[id] = c
	return c
}

// Acquire returns the conversation for id, creating it if needed, and blocks
// until no other request holds it. The conversation cannot be swept until
// Release is called.
func (s *Store) Acquire(id string) *Conversation {
	s.mu.Lock()
	c := s.getOrCreateLocked(id)
	c.users++
	s.mu.Unlock()

	c.turn.Lock()
	return c
}

// InUse reports whether a request holds or waits for c.
func (s *Store) InUse(c *Conversation) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.users > 0
}

// Release ends the hold taken by Acquire.
func (s *Store) Release(c *Conversation) {
	c.turn.Unlock()

	s.mu.Lock()
	c.users--
	c.lastUpdated = s.now()
	s.mu.Unlock()
}

// Get returns the conversation for id without creating it.
func (s *Store) Get(id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// History returns a copy of the conversation's messages.
func (s *Store) History(c *Conversation) schema.Messages {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.messages.Clone()
}

// LastUpdated returns when the conversation was last touched.
func (s *Store) LastUpdated(c *Conversation) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.lastUpdated
}

// Touch marks the conversation as active now. Unknown ids are ignored.
func (s *Store) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conversations[id]; ok {
		c.lastUpdated = s.now()
	}
}

// Save replaces the conversation's history and touches it. If a sweep
// evicted the conversation while a request was running, Save puts it back.
func (s *Store) Save(c *Conversation, msgs schema.Messages) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.messages = msgs.Clone()
	c.lastUpdated = s.now()
	s.conversations[c.ID] = c
}

// Delete removes a conversation.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
}

// Sweep removes every conversation idle for longer than ttl and returns how
// many were removed. Conversations held through Acquire are never removed.
// A non-positive ttl uses DefaultTTL.
func (s *Store) Sweep(ttl time.Duration) int {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.conversations {
		if c.users == 0 && c.lastUpdated.Before(cutoff) {
			delete(s.conversations, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Info("Swept idle conversations", "removed", removed, "remaining", len(s.conversations), "ttl", ttl)
	}
	return removed
}

// Len returns the number of stored conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}
