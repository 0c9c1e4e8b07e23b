package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session records as JSON values with a TTL equal to the
// session's remaining lifetime, so Redis expires them on its own.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore returns a store writing keys of the form "<prefix>:<key>".
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "session"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key(k string) string { return s.prefix + ":" + k }

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdb.SetEx(ctx, s.key(rec.Key), b, ttl).Err()
}

func (s *RedisStore) Lookup(ctx context.Context, key string) (Record, error) {
	b, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}
