package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements StateStore on Redis. Durable wizard keys have no
// TTL; the session flag does, which makes it the session-scoped half of the
// store.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	sessionTTL time.Duration
}

// NewRedisStore creates a Redis-backed state store.
func NewRedisStore(addr, password, prefix string, sessionTTL time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Redis state store initialized", "addr", addr, "prefix", prefix)
	return &RedisStore{client: client, prefix: prefix, sessionTTL: sessionTTL}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) storageKey(sessionID, key string) string {
	return s.prefix + sessionID + ":" + key
}

// Save serializes value and writes it under the session's key. A failed
// write triggers a full-store clear for the session as recovery before the
// error is reported.
func (s *RedisStore) Save(ctx context.Context, sessionID, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", key, err)
	}

	if err := s.client.Set(ctx, s.storageKey(sessionID, key), data, 0).Err(); err != nil {
		slog.Warn("State write failed, clearing session state", "key", key, "error", err)
		if clearErr := s.ClearAll(ctx, sessionID); clearErr != nil {
			slog.Error("State clear after failed write also failed", "error", clearErr)
		}
		return fmt.Errorf("failed to save %s: %w", key, err)
	}

	slog.Debug("Wizard state saved", "session", sessionID, "key", key)
	return nil
}

// Load fills dest from the stored JSON. Missing keys and corrupt payloads
// are both treated as absent.
func (s *RedisStore) Load(ctx context.Context, sessionID, key string, dest any) bool {
	data, err := s.client.Get(ctx, s.storageKey(sessionID, key)).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		slog.Warn("State read failed", "key", key, "error", err)
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		slog.Warn("Corrupt wizard state, treating as absent", "key", key, "error", err)
		return false
	}

	slog.Debug("Wizard state loaded", "session", sessionID, "key", key)
	return true
}

// Delete removes a single wizard key.
func (s *RedisStore) Delete(ctx context.Context, sessionID, key string) error {
	if err := s.client.Del(ctx, s.storageKey(sessionID, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// ClearAll removes every wizard key for the session, one by one.
func (s *RedisStore) ClearAll(ctx context.Context, sessionID string) error {
	var firstErr error
	for _, key := range WizardKeys {
		if err := s.client.Del(ctx, s.storageKey(sessionID, key)).Err(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to clear %s: %w", key, err)
		}
	}
	if firstErr != nil {
		return firstErr
	}

	slog.Debug("Wizard state cleared", "session", sessionID)
	return nil
}

// IsFreshSession reports whether no session flag exists for the session.
func (s *RedisStore) IsFreshSession(ctx context.Context, sessionID string) bool {
	n, err := s.client.Exists(ctx, s.storageKey(sessionID, KeySessionActive)).Result()
	if err != nil {
		slog.Warn("Session flag check failed, assuming fresh session", "error", err)
		return true
	}
	return n == 0
}

// MarkSessionActive sets the session flag and refreshes its expiry.
func (s *RedisStore) MarkSessionActive(ctx context.Context, sessionID string) error {
	err := s.client.Set(ctx, s.storageKey(sessionID, KeySessionActive), "true", s.sessionTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to mark session active: %w", err)
	}
	return nil
}
