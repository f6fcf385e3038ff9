// Package sloghooks is a hook sink writing to log/slog with sampling for the
// per-request events (hits/misses) so a hot cache does not flood the logs.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cacheme/cacheme"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery  uint64
	MissEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ cacheme.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) CacheHit(key string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("cacheme.hit", "key", h.redact(key))
}

func (h *Hooks) CacheMiss(key string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("cacheme.miss", "key", h.redact(key))
}

func (h *Hooks) Stored(key string, ttl time.Duration) {
	if h.l == nil {
		return
	}
	h.l.Debug("cacheme.stored", "key", h.redact(key), "ttl", ttl)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil {
		return
	}
	h.l.Warn("cacheme.self_heal", "key", h.redact(storageKey), "reason", reason)
}

func (h *Hooks) Invalidated(entity string, deleted int) {
	if h.l == nil {
		return
	}
	h.l.Debug("cacheme.invalidated", "entity", entity, "deleted", deleted)
}

func (h *Hooks) InvalidateFailed(entity string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("cacheme.invalidate_failed", "entity", entity, "err", err)
}

func (h *Hooks) PatternUnsupported(pattern string) {
	if h.l == nil {
		return
	}
	h.l.Debug("cacheme.pattern_unsupported", "pattern", pattern)
}

func (h *Hooks) QueueFallback(entity string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("cacheme.queue_fallback", "entity", entity, "err", err)
}

func (h *Hooks) WarmerFailed(entity string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("cacheme.warmer_failed", "entity", entity, "err", err)
}
