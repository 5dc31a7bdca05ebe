// Package session keeps values that must live exactly as long as the user's session,
// most importantly the YNAB access token. Nothing here is persisted.
package session

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Store is a concurrency-safe key/value map scoped to the running session.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// Get returns the value under key. Empty values are reported as absent.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		log.Debugf("removing session value %q", key)
	}
	delete(s.values, key)
}
