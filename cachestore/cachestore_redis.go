package cachestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

var redisResultPrefix = "starling/results/"
var redisGenerationPrefix = "starling/generation/"

// RedisResultStore shares results between processes, with a small local TinyLFU in front of redis.
//
// Each dataset has a generation counter, read straight from redis and folded in to every result key. Invalidate increments it, which orphans every earlier result for that dataset (locally cached copies included) until they expire. Counters never expire, so an invalidation cannot be undone by eviction.
type RedisResultStore struct {
	Client  *redis.Client
	Results *cache.Cache
	TTL     time.Duration
}

var _ ResultStore = (*RedisResultStore)(nil)

func NewRedisResultStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisResultStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, err
	}
	return &RedisResultStore{
		Client: rdb,
		Results: cache.New(&cache.Options{
			Redis:      rdb,
			LocalCache: cache.NewTinyLFU(1_000, ttl),
		}),
		TTL: ttl,
	}, nil
}

func (s *RedisResultStore) generation(ctx context.Context, datasetFP string) (int64, error) {
	gen, err := s.Client.Get(ctx, redisGenerationPrefix+datasetFP).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("reading cache generation: %w", err)
	}
	return gen, nil
}

func (s *RedisResultStore) resultKey(ctx context.Context, datasetFP, runKey string) (string, error) {
	gen, err := s.generation(ctx, datasetFP)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s/%d/%s", redisResultPrefix, datasetFP, gen, runKey), nil
}

func (s *RedisResultStore) Load(ctx context.Context, datasetFP, runKey string) ([]byte, bool, error) {
	key, err := s.resultKey(ctx, datasetFP, runKey)
	if err != nil {
		return nil, false, err
	}
	var val []byte
	err = s.Results.Get(ctx, key, &val)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisResultStore) Save(ctx context.Context, datasetFP, runKey string, val []byte) error {
	key, err := s.resultKey(ctx, datasetFP, runKey)
	if err != nil {
		return err
	}
	return s.Results.Set(&cache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: val,
		TTL:   s.TTL,
	})
}

func (s *RedisResultStore) Invalidate(ctx context.Context, datasetFP string) error {
	return s.Client.Incr(ctx, redisGenerationPrefix+datasetFP).Err()
}
