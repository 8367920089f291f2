package otp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "otp:v1:"

	fieldValue     = "value"
	fieldIssuedAt  = "issued_at"
	fieldExpiresAt = "expires_at"
	fieldAttempts  = "attempts"
	fieldConsumed  = "consumed"
)

// RedisStore keeps the single active code per identity in a Redis hash whose
// TTL matches the code expiry, so dead codes age out on their own.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a Redis-backed code store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Put overwrites the hash for the identity, invalidating any previous code.
func (s *RedisStore) Put(ctx context.Context, code Code) error {
	key := redisKeyPrefix + code.IdentityID
	ttl := time.Until(code.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("code already expired")
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]any{
		fieldValue:     code.Value,
		fieldIssuedAt:  strconv.FormatInt(code.IssuedAt.Unix(), 10),
		fieldExpiresAt: strconv.FormatInt(code.ExpiresAt.Unix(), 10),
		fieldAttempts:  strconv.Itoa(code.Attempts),
		fieldConsumed:  boolField(code.Consumed),
	})
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put code: %w", err)
	}
	return nil
}

// Get fetches the active code for the identity.
func (s *RedisStore) Get(ctx context.Context, identityID string) (Code, error) {
	values, err := s.client.HGetAll(ctx, redisKeyPrefix+identityID).Result()
	if err != nil {
		return Code{}, fmt.Errorf("redis get code: %w", err)
	}
	if len(values) == 0 {
		return Code{}, ErrNoActiveCode
	}

	issuedAt, err := parseUnix(values[fieldIssuedAt])
	if err != nil {
		return Code{}, fmt.Errorf("parse issued_at: %w", err)
	}
	expiresAt, err := parseUnix(values[fieldExpiresAt])
	if err != nil {
		return Code{}, fmt.Errorf("parse expires_at: %w", err)
	}
	attempts, _ := strconv.Atoi(values[fieldAttempts])

	return Code{
		IdentityID: identityID,
		Value:      values[fieldValue],
		IssuedAt:   issuedAt,
		ExpiresAt:  expiresAt,
		Attempts:   attempts,
		Consumed:   values[fieldConsumed] == "1",
	}, nil
}

// Update persists the mutable fields, keeping the key TTL untouched.
func (s *RedisStore) Update(ctx context.Context, code Code) error {
	key := redisKeyPrefix + code.IdentityID
	err := s.client.HSet(ctx, key, map[string]any{
		fieldAttempts: strconv.Itoa(code.Attempts),
		fieldConsumed: boolField(code.Consumed),
	}).Err()
	if err != nil {
		return fmt.Errorf("redis update code: %w", err)
	}
	return nil
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func parseUnix(raw string) (time.Time, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(v, 0).UTC(), nil
}
