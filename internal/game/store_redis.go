package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// MatchPersistence stores match snapshots between process restarts.
type MatchPersistence interface {
	Save(ctx context.Context, code string, snap MatchSnapshot) error
	Load(ctx context.Context, code string) (MatchSnapshot, bool, error)
	Delete(ctx context.Context, code string) error
}

type RedisMatchStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisMatchStore(rdb *redis.Client, ttl time.Duration) *RedisMatchStore {
	return &RedisMatchStore{rdb: rdb, ttl: ttl}
}

func (s *RedisMatchStore) key(code string) string {
	return fmt.Sprintf("match:%s:snapshot", code)
}

func (s *RedisMatchStore) Save(ctx context.Context, code string, snap MatchSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", code, err)
	}
	return s.rdb.Set(ctx, s.key(code), b, s.ttl).Err()
}

func (s *RedisMatchStore) Load(ctx context.Context, code string) (MatchSnapshot, bool, error) {
	val, err := s.rdb.Get(ctx, s.key(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return MatchSnapshot{}, false, nil
	}
	if err != nil {
		return MatchSnapshot{}, false, err
	}

	var snap MatchSnapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return MatchSnapshot{}, false, fmt.Errorf("unmarshal snapshot %s: %w", code, err)
	}
	return snap, true, nil
}

func (s *RedisMatchStore) Delete(ctx context.Context, code string) error {
	return s.rdb.Del(ctx, s.key(code)).Err()
}
