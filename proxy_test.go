package cacheme

import (
	"context"
	"strings"
	"testing"
)

// ==============================
// Read-through tests
// ==============================

func TestReadThroughHitAfterMiss(t *testing.T) {
	ctx := context.Background()
	c, mb := newTestCache(t, nil)
	if err := c.Registry().Register("app.product", CacheOptions{CacheQueryset: true}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	p := newProductProxy(t, c)

	q := activeQuery()
	rows, err := p.Rows(ctx, q)
	if err != nil {
		t.Fatalf("Rows (miss): %v", err)
	}
	if len(rows) != 2 || q.calls != 1 {
		t.Fatalf("miss: rows=%d calls=%d", len(rows), q.calls)
	}

	keys := mb.keysWithPrefix("cache_me:queryset:app.product:")
	if len(keys) != 1 {
		t.Fatalf("stored keys = %v", keys)
	}

	// identical query shape: served from cache, no second execution
	rows, err = p.Rows(ctx, q)
	if err != nil {
		t.Fatalf("Rows (hit): %v", err)
	}
	if len(rows) != 2 || q.calls != 1 {
		t.Fatalf("hit: rows=%d calls=%d", len(rows), q.calls)
	}
}

func TestTableCachingIsOptIn(t *testing.T) {
	ctx := context.Background()

	// cache_table=false: the unfiltered scan lands in the queryset tier
	c, mb := newTestCache(t, nil)
	if err := c.Registry().Register("app.product", CacheOptions{CacheQueryset: true}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	p := newProductProxy(t, c)
	if _, err := p.Rows(ctx, tableQuery()); err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if mb.has("cache_me:table:app.product") {
		t.Fatal("cache_table=false must never produce a table key")
	}
	if got := mb.keysWithPrefix("cache_me:queryset:app.product:"); len(got) != 1 {
		t.Fatalf("queryset keys = %v", got)
	}

	// cache_table=true: same scan uses the single table key
	c2, mb2 := newTestCache(t, nil)
	if err := c2.Registry().Register("app.product", CacheOptions{CacheTable: true, CacheQueryset: true}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	p2 := newProductProxy(t, c2)
	q := tableQuery()
	if _, err := p2.Rows(ctx, q); err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if !mb2.has("cache_me:table:app.product") {
		t.Fatal("cache_table=true must cache the scan under the table key")
	}
	if _, err := p2.Rows(ctx, q); err != nil {
		t.Fatalf("Rows (hit): %v", err)
	}
	if q.calls != 1 {
		t.Fatalf("table hit executed the query again: calls=%d", q.calls)
	}
}

func TestQuerysetCachingDisabled(t *testing.T) {
	ctx := context.Background()
	c, mb := newTestCache(t, nil)
	if err := c.Registry().Register("app.product", CacheOptions{CacheTable: true}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	p := newProductProxy(t, c)

	q := activeQuery()
	for i := 0; i < 2; i++ {
		if _, err := p.Rows(ctx, q); err != nil {
			t.Fatalf("Rows: %v", err)
		}
	}
	if q.calls != 2 {
		t.Fatalf("cache_queryset=false should execute every time, calls=%d", q.calls)
	}
	if got := mb.keysWithPrefix("cache_me:queryset:"); len(got) != 0 {
		t.Fatalf("cache_queryset=false must never produce queryset keys: %v", got)
	}
}

func TestNoCacheBypass(t *testing.T) {
	ctx := context.Background()
	c, mb := newTestCache(t, nil)
	p := newProductProxy(t, c).NoCache()

	q := activeQuery()
	for i := 0; i < 2; i++ {
		if _, err := p.Rows(ctx, q); err != nil {
			t.Fatalf("Rows: %v", err)
		}
	}
	if q.calls != 2 {
		t.Fatalf("bypass should execute every time, calls=%d", q.calls)
	}
	if got := mb.keysWithPrefix("cache_me:"); len(got) != 0 {
		t.Fatalf("bypass must leave no cache entries: %v", got)
	}
}

func TestGlobalKillSwitch(t *testing.T) {
	ctx := context.Background()
	c, mb := newTestCache(t, func(o *Options) { o.Disabled = true })
	p := newProductProxy(t, c)

	q := activeQuery()
	for i := 0; i < 2; i++ {
		if _, err := p.Rows(ctx, q); err != nil {
			t.Fatalf("Rows: %v", err)
		}
	}
	if q.calls != 2 {
		t.Fatalf("disabled cache should execute every time, calls=%d", q.calls)
	}
	if got := mb.keysWithPrefix("cache_me:"); len(got) != 0 {
		t.Fatalf("disabled cache must leave no entries: %v", got)
	}

	// invalidation is a no-op pass-through as well
	c.HandleMutation(ctx, MutationEvent{Entity: "app.product", Op: OpSave})
	if err := c.Invalidate(ctx, "app.product", true); err != nil {
		t.Fatalf("Invalidate while disabled: %v", err)
	}
}

func TestPermanentTierKeys(t *testing.T) {
	ctx := context.Background()
	c, mb := newTestCache(t, nil)
	p := newProductProxy(t, c).Permanent()

	if _, err := p.Rows(ctx, activeQuery()); err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if got := mb.keysWithPrefix("cache_me:permanent_queryset:app.product:"); len(got) != 1 {
		t.Fatalf("permanent queryset keys = %v", got)
	}
}

func TestEmptyResultNotCached(t *testing.T) {
	ctx := context.Background()
	c, mb := newTestCache(t, nil)
	p := newProductProxy(t, c)

	q := activeQuery()
	q.rows = nil
	for i := 0; i < 2; i++ {
		rows, err := p.Rows(ctx, q)
		if err != nil {
			t.Fatalf("Rows: %v", err)
		}
		if len(rows) != 0 {
			t.Fatalf("rows = %v", rows)
		}
	}
	if q.calls != 2 {
		t.Fatalf("empty results must re-execute, calls=%d", q.calls)
	}
	if got := mb.keysWithPrefix("cache_me:"); len(got) != 0 {
		t.Fatalf("empty result must not be stored: %v", got)
	}
}

// ==============================
// Degradation and self-heal
// ==============================

func TestBackendOutageDegradesToDirect(t *testing.T) {
	ctx := context.Background()
	c, mb := newTestCache(t, nil)
	p := newProductProxy(t, c)
	mb.failEverything = true

	q := activeQuery()
	rows, err := p.Rows(ctx, q)
	if err != nil {
		t.Fatalf("Rows during outage: %v", err)
	}
	if len(rows) != 2 || q.calls != 1 {
		t.Fatalf("outage: rows=%d calls=%d", len(rows), q.calls)
	}
}

func TestCorruptEntrySelfHeals(t *testing.T) {
	ctx := context.Background()
	hooks := &recHooks{}
	c, mb := newTestCache(t, func(o *Options) { o.Hooks = hooks })
	p := newProductProxy(t, c)

	q := activeQuery()
	if _, err := p.Rows(ctx, q); err != nil {
		t.Fatalf("Rows: %v", err)
	}
	keys := mb.keysWithPrefix("cache_me:queryset:app.product:")
	if len(keys) != 1 {
		t.Fatalf("stored keys = %v", keys)
	}

	// inject foreign bytes under the key
	if err := mb.Set(ctx, keys[0], []byte("not-wire-format"), 0); err != nil {
		t.Fatalf("inject: %v", err)
	}

	rows, err := p.Rows(ctx, q)
	if err != nil {
		t.Fatalf("Rows on corrupt: %v", err)
	}
	if len(rows) != 2 || q.calls != 2 {
		t.Fatalf("corrupt entry must re-execute: rows=%d calls=%d", len(rows), q.calls)
	}
	if len(hooks.selfHeals) != 1 || hooks.selfHeals[0] != "corrupt" {
		t.Fatalf("selfHeals = %v", hooks.selfHeals)
	}
	// the re-execution stored a fresh valid entry
	if _, err := p.Rows(ctx, q); err != nil {
		t.Fatalf("Rows after heal: %v", err)
	}
	if q.calls != 2 {
		t.Fatalf("healed entry should hit, calls=%d", q.calls)
	}
}

func TestUnregisteredEntityCachesFilteredQueries(t *testing.T) {
	ctx := context.Background()
	c, mb := newTestCache(t, nil)
	p := newProductProxy(t, c) // nothing registered: defaults apply

	q := activeQuery()
	for i := 0; i < 2; i++ {
		if _, err := p.Rows(ctx, q); err != nil {
			t.Fatalf("Rows: %v", err)
		}
	}
	if q.calls != 1 {
		t.Fatalf("default options should cache filtered queries, calls=%d", q.calls)
	}
	if got := mb.keysWithPrefix("cache_me:queryset:app.product:"); len(got) != 1 {
		t.Fatalf("queryset keys = %v", got)
	}
}

func TestKeyNamespaceOverride(t *testing.T) {
	ctx := context.Background()
	c, mb := newTestCache(t, func(o *Options) { o.Namespace = "svc" })
	p := newProductProxy(t, c)

	if _, err := p.Rows(ctx, activeQuery()); err != nil {
		t.Fatalf("Rows: %v", err)
	}
	keys := mb.keysWithPrefix("svc:queryset:app.product:")
	if len(keys) != 1 {
		t.Fatalf("namespaced keys = %v", keys)
	}
	if strings.HasPrefix(keys[0], "cache_me:") {
		t.Fatalf("default namespace leaked into %q", keys[0])
	}
}
