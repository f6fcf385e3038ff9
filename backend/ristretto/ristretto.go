package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	be "github.com/cacheme/cacheme/backend"
)

// Backend adapts Ristretto for in-process caching. Per-entry cost is the
// payload size; admission may reject a write under pressure, which the read
// path treats as a plain miss. No pattern deletion: queryset-tier
// invalidation degrades to TTL-only expiry.
type Backend struct {
	c *rc.Cache
}

var _ be.Backend = (*Backend)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Backend, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Backend{c: c}, nil
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := b.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	raw, _ := v.([]byte)
	if raw == nil {
		// self-heal: drop unexpected entry shape
		b.c.Del(key)
		return nil, false, nil
	}
	return raw, true, nil
}

func (b *Backend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.c.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

func (b *Backend) Del(_ context.Context, key string) error {
	b.c.Del(key)
	return nil
}

func (b *Backend) Close(_ context.Context) error {
	b.c.Wait()
	b.c.Close()
	return nil
}

// Metrics exposes the underlying ristretto metrics when enabled in Config.
func (b *Backend) Metrics() *rc.Metrics { return b.c.Metrics }
