package cacheme

import (
	"context"
	"time"

	"github.com/cacheme/cacheme/codec"
	"github.com/cacheme/cacheme/internal/wire"
)

// Proxy is the read-through wrapper for one entity type. It never mutates the
// underlying store: a call either returns cached rows or executes the query
// and stores the materialized result. Concurrent identical misses may both
// execute and both write the same key; last write wins at the backend.
type Proxy[V any] struct {
	c      *Cache
	entity string
	codec  codec.Codec[[]V]

	bypass    bool
	permanent bool
}

// NewProxy binds a proxy to an entity type. The codec serializes the
// materialized row set for storage.
func NewProxy[V any](c *Cache, entity string, cd codec.Codec[[]V]) (*Proxy[V], error) {
	if c == nil {
		return nil, &ConfigError{Field: "cache", Reason: "required"}
	}
	if cd == nil {
		return nil, &ConfigError{Field: "codec", Reason: "required"}
	}
	entity = normalizeEntity(entity)
	if entity == "" {
		return nil, &ConfigError{Field: "entity", Reason: "empty identifier"}
	}
	return &Proxy[V]{c: c, entity: entity, codec: cd}, nil
}

// NoCache returns a copy of this proxy that always executes directly with no
// cache interaction and no side effects.
func (p *Proxy[V]) NoCache() *Proxy[V] {
	cp := *p
	cp.bypass = true
	return &cp
}

// Permanent returns a copy of this proxy that reads and writes the permanent
// tiers, which survive mutation-driven invalidation.
func (p *Proxy[V]) Permanent() *Proxy[V] {
	cp := *p
	cp.permanent = true
	return &cp
}

// Entity returns the normalized entity identifier the proxy serves.
func (p *Proxy[V]) Entity() string { return p.entity }

// Rows evaluates the query through the cache. Backend failures degrade to
// direct execution; the caller sees them only as a miss.
func (p *Proxy[V]) Rows(ctx context.Context, q Query[V]) ([]V, error) {
	if p.bypass || !p.c.Enabled() {
		return q.Run(ctx)
	}

	repr := q.Repr()
	opts := p.c.registry.Options(p.entity)

	var tier Tier
	switch {
	case !repr.Filtered && opts.CacheTable:
		tier = tierFor(false, p.permanent)
	case repr.Filtered && opts.CacheQueryset:
		tier = tierFor(true, p.permanent)
	case !repr.Filtered && opts.CacheQueryset:
		// whole-table scan with table caching off: still cacheable, but
		// under the queryset tier so no table key ever exists
		tier = tierFor(true, p.permanent)
	default:
		return q.Run(ctx)
	}

	key, err := p.c.keys.Build(p.entity, tier, &repr)
	if err != nil {
		p.c.log.Warn("cache key derivation failed; executing directly", Fields{"entity": p.entity, "err": err})
		return q.Run(ctx)
	}

	if rows, ok := p.lookup(ctx, key); ok {
		return rows, nil
	}

	rows, err := q.Run(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		// empty result sets are not cached; the next call re-executes
		p.c.debugf("empty result not cached", Fields{"key": key})
		return rows, nil
	}
	p.store(ctx, key, rows, opts.Timeout)
	return rows, nil
}

// Invalidate deletes this entity's table and queryset keys. With
// invalidateAll, the permanent tiers go too.
func (p *Proxy[V]) Invalidate(ctx context.Context, invalidateAll bool) error {
	return p.c.Invalidate(ctx, p.entity, invalidateAll)
}

func (p *Proxy[V]) lookup(ctx context.Context, key string) ([]V, bool) {
	raw, ok, err := p.c.backend.Get(ctx, key)
	if err != nil {
		p.c.log.Warn("backend get failed; executing directly", Fields{"key": key, "err": err})
		return nil, false
	}
	if !ok {
		p.c.hooks.CacheMiss(key)
		p.c.debugf("cache miss; hitting database", Fields{"key": key})
		return nil, false
	}
	_, payload, err := wire.DecodeRowset(raw)
	if err != nil {
		_ = p.c.backend.Del(ctx, key) // self-heal corrupt
		p.c.hooks.SelfHeal(key, "corrupt")
		return nil, false
	}
	rows, err := p.codec.Decode(payload)
	if err != nil {
		_ = p.c.backend.Del(ctx, key) // self-heal
		p.c.hooks.SelfHeal(key, "value_decode")
		return nil, false
	}
	p.c.hooks.CacheHit(key)
	p.c.debugf("serving rows from cache", Fields{"key": key, "rows": len(rows)})
	return rows, true
}

func (p *Proxy[V]) store(ctx context.Context, key string, rows []V, ttl time.Duration) {
	payload, err := p.codec.Encode(rows)
	if err != nil {
		p.c.log.Warn("row set encode failed; result not cached", Fields{"key": key, "err": err})
		return
	}
	if ttl == 0 {
		ttl = p.c.defaultTimeout
	}
	if err := p.c.backend.Set(ctx, key, wire.EncodeRowset(uint32(len(rows)), payload), ttl); err != nil {
		p.c.log.Warn("backend set failed; result not cached", Fields{"key": key, "err": err})
		return
	}
	p.c.hooks.Stored(key, ttl)
	p.c.debugf("cached row set", Fields{"key": key, "rows": len(rows), "ttl": ttl})
}
