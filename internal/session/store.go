// internal/session/store.go

// Package session owns the process-wide authentication token.
package session

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Change describes a token transition delivered to listeners.
type Change struct {
	Previous string
	Current  string
	Restored bool
}

// Authenticated reports whether the change leaves a token in place.
func (c Change) Authenticated() bool { return c.Current != "" }

// Listener is notified after every token change. Listeners run
// synchronously and in registration order, one change at a time; they
// must not call Set or Clear.
type Listener func(Change)

type listenerEntry struct {
	id uint64
	fn Listener
}

// TokenStore holds the single session token of the process and mirrors it
// to a durable backend. Durable failures are logged and never surface to
// callers: the in-memory value is authoritative for the running process.
type TokenStore struct {
	mu      sync.RWMutex
	token   string
	backend Backend
	logger  *zap.Logger

	// notifyMu serializes change delivery so listeners observe changes in
	// the order they happened.
	notifyMu  sync.Mutex
	listeners []listenerEntry
	nextID    uint64
	lmu       sync.Mutex
}

// NewTokenStore creates a store backed by backend. A nil backend keeps the
// token in memory only.
func NewTokenStore(backend Backend, logger *zap.Logger) *TokenStore {
	if backend == nil {
		backend = &MemoryBackend{}
	}
	return &TokenStore{
		backend: backend,
		logger:  logger.Named("token_store"),
	}
}

// Get returns the current token, "" when anonymous.
func (s *TokenStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Restore loads the durable token at startup and notifies listeners if one
// was found.
func (s *TokenStore) Restore() string {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	token, err := s.backend.Load()
	if err != nil {
		s.logger.Warn("Failed to restore session token", zap.Error(err))
		return ""
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	s.swap(token, true)
	s.logger.Debug("Session token restored")
	return token
}

// Set stores token and notifies listeners. An empty token is the same as Clear.
func (s *TokenStore) Set(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		s.Clear()
		return
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if err := s.backend.Save(token); err != nil {
		s.logger.Warn("Failed to persist session token", zap.Error(err))
	}
	s.swap(token, false)
}

// Clear removes the token and notifies listeners of the absence.
func (s *TokenStore) Clear() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if err := s.backend.Remove(); err != nil {
		s.logger.Warn("Failed to remove persisted session token", zap.Error(err))
	}
	s.swap("", false)
}

// ClearIf clears the token only if it still equals token. It reports
// whether a clear happened.
func (s *TokenStore) ClearIf(token string) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if token == "" || s.Get() != token {
		return false
	}
	if err := s.backend.Remove(); err != nil {
		s.logger.Warn("Failed to remove persisted session token", zap.Error(err))
	}
	s.swap("", false)
	return true
}

// Subscribe registers fn for token changes and returns a function that
// removes it.
func (s *TokenStore) Subscribe(fn Listener) func() {
	s.lmu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// swap runs with notifyMu held.
func (s *TokenStore) swap(token string, restored bool) {
	s.mu.Lock()
	prev := s.token
	s.token = token
	s.mu.Unlock()

	if prev == token && !restored {
		return
	}
	s.notify(Change{Previous: prev, Current: token, Restored: restored})
}

// notify runs with notifyMu held.
func (s *TokenStore) notify(c Change) {
	s.lmu.Lock()
	listeners := make([]listenerEntry, len(s.listeners))
	copy(listeners, s.listeners)
	s.lmu.Unlock()

	for _, l := range listeners {
		l.fn(c)
	}
}
