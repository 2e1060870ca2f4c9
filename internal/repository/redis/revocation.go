// Package redis implements the token revocation store on Redis. Each revoked
// token id is a key whose TTL matches the token's remaining lifetime, so no
// purge job is needed.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/sakif/fitplan/internal/repository"
)

var _ repository.RevocationStore = (*RevocationStore)(nil)

const keyPrefix = "fitplan:revoked:"

// RevocationStore keeps revoked token ids in Redis.
type RevocationStore struct {
	client *goredis.Client
}

// NewRevocationStore connects to addr and verifies the server answers.
func NewRevocationStore(ctx context.Context, addr string) (*RevocationStore, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: connecting to %s: %w", addr, err)
	}
	return &RevocationStore{client: client}, nil
}

func key(tokenID string) string {
	return keyPrefix + tokenID
}

// Revoke stores tokenID until expiresAt. Tokens already past their expiry
// are ignored since validation rejects them anyway.
func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, key(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis: revoking token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID is currently revoked.
func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: checking token revocation: %w", err)
	}
	return n > 0, nil
}

// Ping reports whether Redis is reachable. Used by /healthz.
func (s *RevocationStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (s *RevocationStore) Close() error {
	return s.client.Close()
}
