// Package backend defines the storage abstraction used by cacheme.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key (no
// prepended/appended metadata, no re-encoding, no mutation). If a store
// performs internal transforms (e.g., compression), they MUST be fully
// reversed so that the bytes returned by Get are identical to the bytes
// provided to Set.
//
// The cacheme key namespace (everything under the configured prefix) is owned
// by cacheme. External code MUST NOT write values under it; foreign writes
// may be treated as corruption by the wire-format validation and deleted.
package backend

import (
	"context"
	"time"
)

// Backend is a minimal byte store with TTLs.
// Must be safe for concurrent use. Single-key operations are assumed atomic
// by the caller; nothing beyond that is required.
type Backend interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. ttl <= 0 means "no expiry" (or
	// the store's global window where per-entry TTLs are unsupported).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes a key (best-effort; deleting an absent key is not an error).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// PatternDeleter is implemented by backends that can delete every key
// matching a glob pattern in one pass (e.g. Redis via SCAN). Deletion across
// keys is best-effort, not atomic. Backends without this capability degrade
// queryset-tier invalidation to TTL-only expiry.
type PatternDeleter interface {
	// DelPattern removes matching keys and returns how many were deleted.
	DelPattern(ctx context.Context, pattern string) (int, error)
}
