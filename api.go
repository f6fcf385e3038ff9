package cacheme

import (
	"context"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/cacheme/cacheme/backend"
	"github.com/cacheme/cacheme/queue"
)

const (
	// DefaultNamespace prefixes every derived key.
	DefaultNamespace = "cache_me"
	// DefaultTimeout is the entry TTL when neither the entity options nor
	// Options.DefaultTimeout say otherwise.
	DefaultTimeout = 5 * time.Minute
)

// Options tune the caching layer. Only Backend is required; others have
// sensible defaults.
type Options struct {
	// Required
	Backend backend.Backend

	Namespace      string        // key prefix; "" => "cache_me"
	Logger         Logger        // if nil, NopLogger is used
	Hooks          Hooks         // if nil, NopHooks is used
	Disabled       bool          // global kill switch; every path becomes a pass-through
	DebugMode      bool          // hit/miss/invalidation debug logs
	DefaultTimeout time.Duration // 0 => 5m

	// Async invalidation
	AsyncEnabled     bool        // defer invalidation to the queue
	Queue            queue.Queue // required when AsyncEnabled
	AsyncQueueName   string      // optional routing; "" => default queue
	AsyncImmediate   bool        // enqueue right away instead of gating on transaction commit
	WarmOnInvalidate bool        // run the entity's warmers after each invalidation
}

// Cache is the assembled caching layer: registry, key builder, dispatcher and
// the configured invalidation strategy. Create proxies per entity type with
// NewProxy.
type Cache struct {
	ns             string
	backend        backend.Backend
	log            Logger
	hooks          Hooks
	debug          bool
	enabled        bool
	defaultTimeout time.Duration

	registry    *Registry
	keys        *KeyBuilder
	dispatcher  *Dispatcher
	warmer      *WarmerRunner
	invalidator Invalidator
}

func New(opts Options) (*Cache, error) {
	if opts.Backend == nil {
		return nil, &ConfigError{Field: "backend", Reason: "required"}
	}
	if opts.AsyncEnabled && opts.Queue == nil {
		return nil, &ConfigError{Field: "queue", Reason: "required when AsyncEnabled is set"}
	}

	c := &Cache{
		backend: opts.Backend,
		debug:   opts.DebugMode,
		enabled: !opts.Disabled,
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.ns = coalesce(opts.Namespace, DefaultNamespace)
	c.defaultTimeout = coalesce(opts.DefaultTimeout, DefaultTimeout)

	c.registry = NewRegistry(c.defaultTimeout)
	c.keys = NewKeyBuilder(c.ns)
	c.dispatcher = &Dispatcher{
		enabled: c.enabled,
		reg:     c.registry,
		keys:    c.keys,
		backend: c.backend,
		log:     c.log,
		hooks:   c.hooks,
		debug:   c.debug,
	}
	c.warmer = &WarmerRunner{reg: c.registry, log: c.log, hooks: c.hooks}

	syncInv := &SyncInvalidator{dispatcher: c.dispatcher, warmer: c.warmer, warm: opts.WarmOnInvalidate}
	if opts.AsyncEnabled {
		c.invalidator = &QueuedInvalidator{
			queue:     opts.Queue,
			queueName: opts.AsyncQueueName,
			onCommit:  !opts.AsyncImmediate,
			warm:      opts.WarmOnInvalidate,
			sync:      syncInv,
			log:       c.log,
			hooks:     c.hooks,
		}
	} else {
		c.invalidator = syncInv
	}
	return c, nil
}

// Enabled reports the global kill switch. When false, proxies pass through to
// the query executor and invalidation is a no-op.
func (c *Cache) Enabled() bool { return c.enabled }

// Registry exposes the per-entity options and warmer configuration.
func (c *Cache) Registry() *Registry { return c.registry }

// Keys exposes the key builder, mainly for inspection tooling.
func (c *Cache) Keys() *KeyBuilder { return c.keys }

// HandleMutation consumes one mutation event from the host data layer and
// routes it through the configured invalidation strategy.
func (c *Cache) HandleMutation(ctx context.Context, ev MutationEvent) {
	if !c.enabled || ev.Entity == "" {
		return
	}
	if c.debug {
		c.log.Debug("mutation event", Fields{"entity": normalizeEntity(ev.Entity), "op": ev.Op.String()})
	}
	c.invalidator.Schedule(ctx, normalizeEntity(ev.Entity), false, ev.Tx)
}

// Invalidate synchronously deletes the entity's table and queryset keys;
// invalidateAll extends the pass to the permanent tiers.
func (c *Cache) Invalidate(ctx context.Context, entity string, invalidateAll bool) error {
	return c.dispatcher.Invalidate(ctx, entity, invalidateAll)
}

// ScheduleInvalidation routes one explicit invalidation through the
// configured strategy, honoring async mode and the commit gate. Data-layer
// glue uses this where it would otherwise call the dispatcher inline.
func (c *Cache) ScheduleInvalidation(ctx context.Context, entity string, permanent bool, tx TxContext) {
	if !c.enabled {
		return
	}
	c.invalidator.Schedule(ctx, normalizeEntity(entity), permanent, tx)
}

// InvalidateAll invalidates every registered entity through the configured
// strategy. Failures per entity are logged and do not stop the pass.
func (c *Cache) InvalidateAll(ctx context.Context, permanent bool) {
	if !c.enabled {
		return
	}
	entities := c.registry.Entities()
	if len(entities) == 0 {
		c.debugf("no registered entities to invalidate", nil)
		return
	}
	for _, entity := range entities {
		c.invalidator.Schedule(ctx, entity, permanent, nil)
	}
}

// Warm runs the entity's configured warmers immediately.
func (c *Cache) Warm(ctx context.Context, entity string) {
	if !c.enabled {
		return
	}
	c.warmer.Run(ctx, entity)
}

// InvalidateHandler returns the queue handler performing deferred
// invalidations. Register it on the worker under TaskInvalidate.
func (c *Cache) InvalidateHandler() queue.Handler {
	return func(ctx context.Context, payload []byte) error {
		var t invalidateTask
		if err := msgpack.Unmarshal(payload, &t); err != nil {
			return err
		}
		err := c.dispatcher.Invalidate(ctx, t.Entity, t.Permanent)
		if t.Warm {
			c.warmer.Run(ctx, t.Entity)
		}
		return err
	}
}

// Close releases the backend.
func (c *Cache) Close(ctx context.Context) error {
	return c.backend.Close(ctx)
}

func (c *Cache) debugf(msg string, f Fields) {
	if c.debug {
		c.log.Debug(msg, f)
	}
}
