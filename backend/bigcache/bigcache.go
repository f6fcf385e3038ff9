package bigcache

import (
	"context"
	"time"

	bc "github.com/allegro/bigcache/v3"

	be "github.com/cacheme/cacheme/backend"
)

// Backend adapts BigCache for in-process caching. BigCache has neither
// per-entry TTLs nor pattern deletion: entries share the global LifeWindow
// and queryset-tier invalidation degrades to TTL-only expiry.
type Backend struct {
	c *bc.BigCache
}

var _ be.Backend = (*Backend)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Backend, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Backend{c: c}, nil
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, err := b.c.Get(key)
	if err == bc.ErrEntryNotFound {
		return nil, false, nil
	}
	return v, err == nil, err
}

func (b *Backend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	// per-entry TTL unsupported; global LifeWindow applies
	return b.c.Set(key, value)
}

func (b *Backend) Del(_ context.Context, key string) error {
	if err := b.c.Delete(key); err != nil && err != bc.ErrEntryNotFound {
		return err
	}
	return nil
}

func (b *Backend) Close(_ context.Context) error {
	return b.c.Close()
}
