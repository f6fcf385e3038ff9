package cacheme

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// CacheOptions is the per-entity caching configuration. Filtered queries are
// cached by default; whole-table scans are opt-in since an unfiltered scan is
// the higher-risk entry to keep around.
type CacheOptions struct {
	// CacheTable caches unfiltered scans under the table tier.
	CacheTable bool
	// CacheQueryset caches filtered queries under the queryset tier.
	CacheQueryset bool
	// Timeout is the entry TTL; 0 falls back to the registry default.
	Timeout time.Duration
}

// Registry maps entity identifiers to their CacheOptions and configured
// warmers. It is populated once during startup and read-only afterwards; the
// mutex only covers registration ordering.
type Registry struct {
	mu             sync.RWMutex
	entities       map[string]CacheOptions
	warmers        map[string][]WarmerFunc
	defaultTimeout time.Duration
}

func NewRegistry(defaultTimeout time.Duration) *Registry {
	return &Registry{
		entities:       make(map[string]CacheOptions),
		warmers:        make(map[string][]WarmerFunc),
		defaultTimeout: coalesce(defaultTimeout, DefaultTimeout),
	}
}

// Register stores options for an entity type. Registering the same entity
// twice is a startup bug and fails with DuplicateRegistrationError.
func (r *Registry) Register(entity string, opts CacheOptions) error {
	entity = normalizeEntity(entity)
	if entity == "" {
		return &ConfigError{Field: "entity", Reason: "empty identifier"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[entity]; ok {
		return &DuplicateRegistrationError{Entity: entity}
	}
	if opts.Timeout == 0 {
		opts.Timeout = r.defaultTimeout
	}
	r.entities[entity] = opts
	return nil
}

// Options returns the registered options for an entity, or the global default
// {CacheTable: false, CacheQueryset: true} for unregistered entities.
func (r *Registry) Options(entity string) CacheOptions {
	entity = normalizeEntity(entity)
	r.mu.RLock()
	opts, ok := r.entities[entity]
	r.mu.RUnlock()
	if !ok {
		return CacheOptions{CacheQueryset: true, Timeout: r.defaultTimeout}
	}
	return opts
}

// Registered reports whether the entity has explicit options.
func (r *Registry) Registered(entity string) bool {
	entity = normalizeEntity(entity)
	r.mu.RLock()
	_, ok := r.entities[entity]
	r.mu.RUnlock()
	return ok
}

// Entities returns all registered entity identifiers, sorted.
func (r *Registry) Entities() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.entities))
	for e := range r.entities {
		out = append(out, e)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// RegisterWarmers appends warmers for an entity. Warmers run in registration
// order after an invalidation when warming is enabled. A nil warmer is a
// malformed reference and fails fast.
func (r *Registry) RegisterWarmers(entity string, fns ...WarmerFunc) error {
	entity = normalizeEntity(entity)
	if entity == "" {
		return &ConfigError{Field: "entity", Reason: "empty identifier"}
	}
	for i, fn := range fns {
		if fn == nil {
			return &ConfigError{Field: "warmers", Reason: "nil warmer at index " + strconv.Itoa(i)}
		}
	}
	r.mu.Lock()
	r.warmers[entity] = append(r.warmers[entity], fns...)
	r.mu.Unlock()
	return nil
}

// Warmers returns the ordered warmer list for an entity.
func (r *Registry) Warmers(entity string) []WarmerFunc {
	entity = normalizeEntity(entity)
	r.mu.RLock()
	fns := r.warmers[entity]
	r.mu.RUnlock()
	return fns
}
