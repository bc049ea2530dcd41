package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hungbv115/education-backend/pkg/database"
)

// SessionRevoker tracks revoked session tokens in Redis. A revoked token
// stays on the list only for its remaining JWT lifetime; after that the
// signature check rejects it anyway.
type SessionRevoker struct {
	redis *database.Redis
}

// NewSessionRevoker creates a new session revoker
func NewSessionRevoker(redis *database.Redis) *SessionRevoker {
	return &SessionRevoker{redis: redis}
}

func sessionKey(token string) string {
	return fmt.Sprintf("revoked:session:%s", token)
}

// Revoke marks a session token as revoked for the given remaining lifetime
func (s *SessionRevoker) Revoke(ctx context.Context, token string, remaining time.Duration) error {
	if err := s.redis.Client.Set(ctx, sessionKey(token), "1", remaining).Err(); err != nil {
		return fmt.Errorf("failed to revoke session token: %w", err)
	}
	return nil
}

// IsRevoked checks whether a session token has been revoked
func (s *SessionRevoker) IsRevoked(ctx context.Context, token string) (bool, error) {
	exists, err := s.redis.Client.Exists(ctx, sessionKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session revocation: %w", err)
	}
	return exists > 0, nil
}
