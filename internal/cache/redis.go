package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces the thumbnail entries in Redis.
const DefaultKeyPrefix = "tasync:thumbnails:"

// Hash fields of a stored entry.
const (
	fieldReference    = "reference"
	fieldEncoded      = "encoded"
	fieldETag         = "etag"
	fieldLastModified = "last_modified"
	fieldStoredAt     = "stored_at"
)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	// TTL expires entries that were not refreshed. Zero keeps them until
	// Redis evicts them.
	TTL time.Duration
	// Prefix defaults to DefaultKeyPrefix.
	Prefix string
}

// RedisStore keeps each thumbnail in its own Redis hash, keyed by a hash of
// the reference. The reference itself is stored alongside and checked on
// load so colliding keys read as a miss.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore connects to Redis/Valkey and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("cache: redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, ttl: cfg.TTL, prefix: prefix}, nil
}

// Key returns the Redis key holding reference.
func (s *RedisStore) Key(reference string) string {
	return s.prefix + strconv.FormatUint(xxhash.Sum64String(reference), 16)
}

func (s *RedisStore) Load(ctx context.Context, reference string) (*Thumbnail, error) {
	fields, err := s.client.HGetAll(ctx, s.Key(reference)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load thumbnail: %w", err)
	}
	if fields[fieldReference] != reference || fields[fieldEncoded] == "" {
		return nil, nil
	}
	return &Thumbnail{
		Encoded:      []byte(fields[fieldEncoded]),
		ETag:         fields[fieldETag],
		LastModified: fields[fieldLastModified],
	}, nil
}

// Save replaces the entry for reference. Thumbnails without validators are
// rejected.
func (s *RedisStore) Save(ctx context.Context, reference string, t *Thumbnail) error {
	if !t.Revalidatable() {
		return errors.New("cache: thumbnail has no validator")
	}
	key := s.Key(reference)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldReference, reference,
			fieldEncoded, t.Encoded,
			fieldETag, t.ETag,
			fieldLastModified, t.LastModified,
			fieldStoredAt, time.Now().Unix(),
		)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save thumbnail: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
