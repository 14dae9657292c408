package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore implements StateStore in process memory. It backs tests and
// REDIS_ADDR-less development runs; state does not survive a restart.
type MemoryStore struct {
	mu         sync.Mutex
	sessions   map[string]map[string][]byte
	flags      map[string]time.Time
	sessionTTL time.Duration
	now        func() time.Time
}

// NewMemoryStore creates an in-memory state store.
func NewMemoryStore(sessionTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions:   make(map[string]map[string][]byte),
		flags:      make(map[string]time.Time),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, sessionID, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[sessionID] == nil {
		s.sessions[sessionID] = make(map[string][]byte)
	}
	s.sessions[sessionID][key] = data
	return nil
}

func (s *MemoryStore) Load(_ context.Context, sessionID, key string, dest any) bool {
	s.mu.Lock()
	data, ok := s.sessions[sessionID][key]
	s.mu.Unlock()
	if !ok {
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		slog.Warn("Corrupt wizard state, treating as absent", "key", key, "error", err)
		return false
	}
	return true
}

func (s *MemoryStore) Delete(_ context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions[sessionID], key)
	return nil
}

func (s *MemoryStore) ClearAll(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range WizardKeys {
		delete(s.sessions[sessionID], key)
	}
	return nil
}

func (s *MemoryStore) IsFreshSession(_ context.Context, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.flags[sessionID]
	if !ok {
		return true
	}
	if s.now().After(expiry) {
		delete(s.flags, sessionID)
		return true
	}
	return false
}

func (s *MemoryStore) MarkSessionActive(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[sessionID] = s.now().Add(s.sessionTTL)
	return nil
}

// Corrupt overwrites a stored value with bytes that are not valid JSON.
// Test hook for the corrupt-data-is-absent contract.
func (s *MemoryStore) Corrupt(sessionID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[sessionID] == nil {
		s.sessions[sessionID] = make(map[string][]byte)
	}
	s.sessions[sessionID][key] = []byte("{not-json")
}
