package cacheme

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	be "github.com/cacheme/cacheme/backend"
	"github.com/cacheme/cacheme/codec"
)

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

// memBackend is an in-memory Backend with pattern deletion; failEverything
// simulates an outage. Wrap in noPatternBackend to exercise the TTL-only
// degradation path.
type memBackend struct {
	mu             sync.Mutex
	m              map[string]memEntry
	failEverything bool
}

var (
	_ be.Backend        = (*memBackend)(nil)
	_ be.PatternDeleter = (*memBackend)(nil)

	errBackendDown = errors.New("backend down")
)

func newMemBackend() *memBackend {
	return &memBackend{m: make(map[string]memEntry)}
}

func (b *memBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failEverything {
		return nil, false, errBackendDown
	}
	e, ok := b.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(b.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (b *memBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failEverything {
		return errBackendDown
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	b.m[key] = memEntry{v: value, exp: exp}
	return nil
}

func (b *memBackend) Del(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failEverything {
		return errBackendDown
	}
	delete(b.m, key)
	return nil
}

func (b *memBackend) DelPattern(_ context.Context, pattern string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failEverything {
		return 0, errBackendDown
	}
	prefix, ok := strings.CutSuffix(pattern, "*")
	n := 0
	for k := range b.m {
		if (ok && strings.HasPrefix(k, prefix)) || (!ok && k == pattern) {
			delete(b.m, k)
			n++
		}
	}
	return n, nil
}

func (b *memBackend) Close(context.Context) error { return nil }

func (b *memBackend) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.m[key]
	return ok
}

func (b *memBackend) keysWithPrefix(prefix string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for k := range b.m {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

// noPatternBackend hides the PatternDeleter capability of memBackend.
// Explicit delegation, not embedding, so DelPattern is not promoted.
type noPatternBackend struct{ mb *memBackend }

var _ be.Backend = noPatternBackend{}

func (b noPatternBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return b.mb.Get(ctx, key)
}

func (b noPatternBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.mb.Set(ctx, key, value, ttl)
}

func (b noPatternBackend) Del(ctx context.Context, key string) error {
	return b.mb.Del(ctx, key)
}

func (b noPatternBackend) Close(ctx context.Context) error { return b.mb.Close(ctx) }

// recHooks records hook invocations for assertions.
type recHooks struct {
	NopHooks
	mu                 sync.Mutex
	hits               []string
	misses             []string
	selfHeals          []string
	invalidateFailed   []error
	patternUnsupported []string
	queueFallbacks     []error
	warmerFailed       []error
}

func (h *recHooks) CacheHit(key string) {
	h.mu.Lock()
	h.hits = append(h.hits, key)
	h.mu.Unlock()
}

func (h *recHooks) CacheMiss(key string) {
	h.mu.Lock()
	h.misses = append(h.misses, key)
	h.mu.Unlock()
}

func (h *recHooks) SelfHeal(key, reason string) {
	h.mu.Lock()
	h.selfHeals = append(h.selfHeals, reason)
	h.mu.Unlock()
}

func (h *recHooks) InvalidateFailed(_ string, err error) {
	h.mu.Lock()
	h.invalidateFailed = append(h.invalidateFailed, err)
	h.mu.Unlock()
}

func (h *recHooks) PatternUnsupported(pattern string) {
	h.mu.Lock()
	h.patternUnsupported = append(h.patternUnsupported, pattern)
	h.mu.Unlock()
}

func (h *recHooks) QueueFallback(_ string, err error) {
	h.mu.Lock()
	h.queueFallbacks = append(h.queueFallbacks, err)
	h.mu.Unlock()
}

func (h *recHooks) WarmerFailed(_ string, err error) {
	h.mu.Lock()
	h.warmerFailed = append(h.warmerFailed, err)
	h.mu.Unlock()
}

// stubQueue records enqueues, optionally failing every call.
type stubQueue struct {
	mu      sync.Mutex
	tasks   []stubTask
	failErr error
}

type stubTask struct {
	name    string
	payload []byte
	queue   string
}

func (q *stubQueue) Enqueue(_ context.Context, task string, payload []byte, queueName string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failErr != nil {
		return q.failErr
	}
	q.tasks = append(q.tasks, stubTask{name: task, payload: payload, queue: queueName})
	return nil
}

func (q *stubQueue) Close(context.Context) error { return nil }

func (q *stubQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

type product struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
}

func newTestCache(t *testing.T, mutate func(*Options)) (*Cache, *memBackend) {
	t.Helper()
	mb := newMemBackend()
	opts := Options{Backend: mb}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, mb
}

func newProductProxy(t *testing.T, c *Cache) *Proxy[product] {
	t.Helper()
	p, err := NewProxy[product](c, "app.product", codec.JSON[[]product]{})
	if err != nil {
		t.Fatalf("NewProxy: %v", err)
	}
	return p
}

// countingQuery returns fixed rows and counts executions.
type countingQuery struct {
	repr  QueryRepr
	rows  []product
	calls int
	err   error
}

func (q *countingQuery) Repr() QueryRepr { return q.repr }
func (q *countingQuery) Run(context.Context) ([]product, error) {
	q.calls++
	return q.rows, q.err
}

func activeQuery() *countingQuery {
	return &countingQuery{
		repr: QueryRepr{
			Statement: `SELECT * FROM product WHERE status = ?`,
			Args:      []any{"active"},
			Filtered:  true,
		},
		rows: []product{{ID: 1, Status: "active"}, {ID: 2, Status: "active"}},
	}
}

func tableQuery() *countingQuery {
	return &countingQuery{
		repr: QueryRepr{Statement: `SELECT * FROM product`},
		rows: []product{{ID: 1, Status: "active"}, {ID: 2, Status: "active"}, {ID: 3, Status: "retired"}},
	}
}
