package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stocksync/internal/secrets"
)

// RedisStore keeps sessions in Redis so they survive restarts and are visible to
// every API instance. Access tokens are sealed before they leave the process.
type RedisStore struct {
	client *redis.Client
	sealer *secrets.Sealer
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, sealer *secrets.Sealer, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		sealer: sealer,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisStore) Create(ctx context.Context, s Session) (string, error) {
	handle, err := newHandle()
	if err != nil {
		return "", fmt.Errorf("failed to generate session handle: %w", err)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if s.AccessToken != "" {
		sealed, err := r.sealer.Seal(s.AccessToken)
		if err != nil {
			return "", fmt.Errorf("failed to seal session token: %w", err)
		}
		s.AccessToken = sealed
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	if err := r.client.Set(ctx, r.prefix+handle, payload, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return handle, nil
}

func (r *RedisStore) Get(ctx context.Context, handle string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.prefix+handle).Bytes()
	return r.decode(raw, err)
}

func (r *RedisStore) Take(ctx context.Context, handle string) (*Session, error) {
	raw, err := r.client.GetDel(ctx, r.prefix+handle).Bytes()
	return r.decode(raw, err)
}

func (r *RedisStore) Invalidate(ctx context.Context, handle string) error {
	return r.client.Del(ctx, r.prefix+handle).Err()
}

func (r *RedisStore) decode(raw []byte, err error) (*Session, error) {
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if s.AccessToken != "" {
		token, err := r.sealer.Open(s.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to open session token: %w", err)
		}
		s.AccessToken = token
	}
	return &s, nil
}
