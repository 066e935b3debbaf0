package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/tracking-recovery/internal/raster"
)

// RedisStore shares sessions between daemon replicas. The raster is stored
// as PNG; Take uses GETDEL so only one replica can claim a session.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "tracking-recovery:session:"
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(id string) string     { return r.prefix + id }
func (r *RedisStore) usedKey(id string) string { return r.prefix + "used:" + id }

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	payload, err := s.Image.PNG()
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(s.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (r *RedisStore) Take(ctx context.Context, id string) (*Session, error) {
	payload, err := r.client.GetDel(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		used, uerr := r.client.Exists(ctx, r.usedKey(id)).Result()
		if uerr == nil && used > 0 {
			return nil, ErrUsed
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take session: %w", err)
	}
	if err := r.client.Set(ctx, r.usedKey(id), 1, r.ttl).Err(); err != nil {
		return nil, fmt.Errorf("mark session used: %w", err)
	}

	img, err := raster.DecodeBytes(payload)
	if err != nil {
		return nil, fmt.Errorf("decode session raster: %w", err)
	}
	return &Session{ID: id, Image: img, CreatedAt: time.Now().UTC()}, nil
}

// Ping checks connectivity for health reporting.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
