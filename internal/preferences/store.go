// Package preferences keeps the user's free-text preferences in memory.
package preferences

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// ErrEmpty is returned when Add is given a blank preference.
var ErrEmpty = errors.New("preference must not be empty")

// Store is an append-only, concurrency-safe list of preferences.
type Store struct {
	mu    sync.RWMutex
	items []string
}

func NewStore() *Store {
	return &Store{}
}

// Add appends pref after trimming surrounding whitespace.
func (s *Store) Add(pref string) (string, error) {
	pref = strings.TrimSpace(pref)
	if pref == "" {
		return "", ErrEmpty
	}

	s.mu.Lock()
	s.items = append(s.items, pref)
	n := len(s.items)
	s.mu.Unlock()

	slog.Info("Preference added", "preference", pref, "total", n)
	return pref, nil
}

// List returns a copy of all preferences in insertion order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Joined renders the list the way the prompts embed it.
func (s *Store) Joined() string {
	return strings.Join(s.List(), ", ")
}
