// Package asynchook decouples hook sinks from the hot path: events are
// handed to a small worker pool and dropped when the queue is full. Use it to
// wrap a sink that does real I/O (metrics push, sampled logging).
package asynchook

import (
	"sync"
	"time"

	"github.com/cacheme/cacheme"
)

type Hooks struct {
	inner cacheme.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ cacheme.Hooks = (*Hooks)(nil)

func New(inner cacheme.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) CacheHit(k string)  { h.try(func() { h.inner.CacheHit(k) }) }
func (h *Hooks) CacheMiss(k string) { h.try(func() { h.inner.CacheMiss(k) }) }
func (h *Hooks) Stored(k string, ttl time.Duration) {
	h.try(func() { h.inner.Stored(k, ttl) })
}
func (h *Hooks) SelfHeal(k, r string) { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) Invalidated(e string, n int) {
	h.try(func() { h.inner.Invalidated(e, n) })
}
func (h *Hooks) InvalidateFailed(e string, err error) {
	h.try(func() { h.inner.InvalidateFailed(e, err) })
}
func (h *Hooks) PatternUnsupported(p string) { h.try(func() { h.inner.PatternUnsupported(p) }) }
func (h *Hooks) QueueFallback(e string, err error) {
	h.try(func() { h.inner.QueueFallback(e, err) })
}
func (h *Hooks) WarmerFailed(e string, err error) {
	h.try(func() { h.inner.WarmerFailed(e, err) })
}
