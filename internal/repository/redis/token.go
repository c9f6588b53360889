package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/clinic-api/internal/repository"
)

const (
	revokedPrefix = "clinic:revoked:"
	resetPrefix   = "clinic:reset:"
)

type tokenStore struct {
	client redis.Cmdable
}

func NewTokenStore(client redis.Cmdable) repository.TokenStore {
	return &tokenStore{client: client}
}

func (s *tokenStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *tokenStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// StoreResetToken keeps only a digest of token so a leaked keyspace does not
// leak usable reset links.
func (s *tokenStore) StoreResetToken(ctx context.Context, token string, subject repository.ResetSubject, ttl time.Duration) error {
	data, err := json.Marshal(subject)
	if err != nil {
		return fmt.Errorf("failed to marshal reset subject: %w", err)
	}
	if err := s.client.Set(ctx, resetKey(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken returns the subject and deletes the token in one step.
func (s *tokenStore) ConsumeResetToken(ctx context.Context, token string) (*repository.ResetSubject, error) {
	data, err := s.client.GetDel(ctx, resetKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read reset token: %w", err)
	}

	var subject repository.ResetSubject
	if err := json.Unmarshal(data, &subject); err != nil {
		return nil, fmt.Errorf("failed to decode reset subject: %w", err)
	}
	return &subject, nil
}

func resetKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return resetPrefix + hex.EncodeToString(sum[:])
}
