package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "altar:session:"
	maxTxnRetries  = 32
)

// RedisStore keeps records as JSON values. Upsert uses WATCH/MULTI so
// concurrent writers for one user retry instead of overwriting each other.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore connects to redisURL and pings it.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client, now: time.Now}, nil
}

func (s *RedisStore) key(userID string) string {
	return redisKeyPrefix + userID
}

func (s *RedisStore) Get(ctx context.Context, userID string) (Record, bool, error) {
	return s.read(ctx, s.client, userID)
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) read(ctx context.Context, c redisGetter, userID string) (Record, bool, error) {
	raw, err := c.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get session %s: %w", userID, err)
	}

	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return Record{}, false, fmt.Errorf("decode session %s: %w", userID, err)
	}
	return r, true, nil
}

func (s *RedisStore) Upsert(ctx context.Context, userID string, fn Mutator) (Record, error) {
	key := s.key(userID)
	var out Record

	txf := func(tx *redis.Tx) error {
		r, ok, err := s.read(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !ok {
			r = newRecord(userID, s.now())
		}
		if err := fn(&r); err != nil {
			return err
		}
		r.UserID = userID

		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode session %s: %w", userID, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		out = r
		return nil
	}

	for i := 0; i < maxTxnRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return Record{}, err
	}
	return Record{}, fmt.Errorf("upsert session %s: too much contention", userID)
}

func (s *RedisStore) Reset(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
