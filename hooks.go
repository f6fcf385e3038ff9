package cacheme

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// Read path: key was served from the backend / had to hit the database.
	CacheHit(key string)
	CacheMiss(key string)

	// A fresh result was stored under key with the given TTL.
	Stored(key string, ttl time.Duration)

	// An entry was deleted by the cache on read.
	// reason ∈ {"corrupt", "value_decode"}
	SelfHeal(storageKey, reason string)

	// Invalidation completed for an entity. deleted is a best-effort count
	// of removed keys.
	Invalidated(entity string, deleted int)

	// A deletion attempt failed; the entry stays until TTL expiry.
	InvalidateFailed(entity string, err error)

	// The backend cannot delete by pattern; queryset keys for the entity
	// will only expire via TTL.
	PatternUnsupported(pattern string)

	// Async enqueue failed and the invalidation ran synchronously instead.
	QueueFallback(entity string, err error)

	// A configured warmer returned an error; siblings still ran.
	WarmerFailed(entity string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) CacheHit(string)                {}
func (NopHooks) CacheMiss(string)               {}
func (NopHooks) Stored(string, time.Duration)   {}
func (NopHooks) SelfHeal(string, string)        {}
func (NopHooks) Invalidated(string, int)        {}
func (NopHooks) InvalidateFailed(string, error) {}
func (NopHooks) PatternUnsupported(string)      {}
func (NopHooks) QueueFallback(string, error)    {}
func (NopHooks) WarmerFailed(string, error)     {}
