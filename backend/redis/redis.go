package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	be "github.com/cacheme/cacheme/backend"
)

var ErrNilClient = errors.New("redis backend: nil client")

// Redis adapts a go-redis client to the cacheme backend contract. It is the
// only bundled backend that supports pattern deletion, which keeps
// queryset-tier invalidation eager instead of TTL-bound.
type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
	scanCount   int64
}

var (
	_ be.Backend        = (*Redis)(nil)
	_ be.PatternDeleter = (*Redis)(nil)
)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this backend exclusively owns the client

	// ScanCount is the COUNT hint for SCAN during pattern deletion; 0 => 100.
	ScanCount int64
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	count := cfg.ScanCount
	if count <= 0 {
		count = 100
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient, scanCount: count}, nil
}

func (b *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := b.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return v, true, nil
}

func (b *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 0 // non-positive TTLs mean "no expiry" per backend contract
	}
	return b.rdb.Set(ctx, key, value, ttl).Err()
}

func (b *Redis) Del(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, key).Err()
}

// DelPattern walks the keyspace with SCAN and deletes every match. Matches
// appearing mid-scan may be missed; they expire via TTL like any other
// leftover.
func (b *Redis) DelPattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := b.rdb.Scan(ctx, cursor, pattern, b.scanCount).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := b.rdb.Del(ctx, keys...).Result()
			deleted += int(n)
			if err != nil {
				return deleted, err
			}
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// Close releases the underlying redis client only when this backend owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (b *Redis) Close(context.Context) error {
	if b.closeClient {
		if err := b.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
