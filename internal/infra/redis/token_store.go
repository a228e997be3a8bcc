package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"media-suite-accounts/internal/domain"
	"media-suite-accounts/internal/domain/ports/repository"
)

var _ repository.TokenStore = (*TokenStore)(nil)

// TokenStore keeps the token -> session index in Redis. Redis TTL handles
// the common expiry case; Find still checks the recorded expiry so a clock
// mismatch cannot resurrect a stale credential.
type TokenStore struct {
	client RedisClient
}

func NewTokenStore(client RedisClient) *TokenStore {
	return &TokenStore{client: client}
}

func (s *TokenStore) key(token string) string {
	return "auth_token:" + token
}

func (s *TokenStore) Save(ctx context.Context, rec *repository.TokenRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(rec.Token), data, ttl)
}

func (s *TokenStore) Find(ctx context.Context, token string) (*repository.TokenRecord, error) {
	data, err := s.client.Get(ctx, s.key(token))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}

	var rec repository.TokenRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, err
	}
	rec.Token = token

	if time.Now().After(rec.ExpiresAt) {
		_ = s.client.Del(ctx, s.key(token))
		return nil, domain.ErrTokenExpired
	}
	return &rec, nil
}

func (s *TokenStore) Delete(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = s.key(t)
	}
	return s.client.Del(ctx, keys...)
}
