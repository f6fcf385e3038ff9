package cacheme

import (
	"context"

	"github.com/cacheme/cacheme/backend"
)

// Operation classifies the mutation that triggered an invalidation. Every
// operation invalidates the same way; the distinction is kept for logs and
// hooks.
type Operation uint8

const (
	OpSave Operation = iota + 1
	OpDelete
	OpBulkCreate
	OpBulkUpdate
	OpQuerysetUpdate
	OpQuerysetDelete
)

func (op Operation) String() string {
	switch op {
	case OpSave:
		return "save"
	case OpDelete:
		return "delete"
	case OpBulkCreate:
		return "bulk_create"
	case OpBulkUpdate:
		return "bulk_update"
	case OpQuerysetUpdate:
		return "queryset_update"
	case OpQuerysetDelete:
		return "queryset_delete"
	default:
		return "unknown"
	}
}

// MutationEvent is the message the host data layer emits for every write. Tx
// carries the enclosing transaction when one is active; nil means autocommit.
type MutationEvent struct {
	Entity string
	Op     Operation
	Tx     TxContext
}

// Dispatcher deletes the cache entries affected by a mutation. Every deletion
// is best-effort: a backend failure is logged and reported through hooks,
// never propagated to the caller of the triggering write.
type Dispatcher struct {
	enabled bool
	reg     *Registry
	keys    *KeyBuilder
	backend backend.Backend
	log     Logger
	hooks   Hooks
	debug   bool
}

// HandleMutation consumes one mutation event synchronously. Deletion is
// attempted and observably complete (success or logged failure) before it
// returns.
func (d *Dispatcher) HandleMutation(ctx context.Context, ev MutationEvent) {
	if !d.enabled || ev.Entity == "" {
		return
	}
	if err := d.Invalidate(ctx, ev.Entity, false); err != nil {
		d.log.Warn("invalidation failed; stale entries expire via TTL",
			Fields{"entity": normalizeEntity(ev.Entity), "op": ev.Op.String(), "err": err})
	}
}

// Invalidate deletes the entity's table key and pattern-deletes its queryset
// keys. Permanent tiers are touched only when permanent is set. The returned
// error aggregates per-tier failures; mutation-driven callers log it, explicit
// callers may inspect it.
func (d *Dispatcher) Invalidate(ctx context.Context, entity string, permanent bool) error {
	if !d.enabled {
		return nil
	}
	entity = normalizeEntity(entity)
	agg := &InvalidationError{Entity: entity}
	deleted := 0

	deleted += d.delKey(ctx, entity, TierTable, &agg.TableErr)
	deleted += d.delPattern(ctx, entity, TierQueryset, &agg.QuerysetErr)

	if permanent {
		deleted += d.delKey(ctx, entity, TierPermanentTable, &agg.PermanentTableErr)
		deleted += d.delPattern(ctx, entity, TierPermanentQueryset, &agg.PermanentQuerysetErr)
	}

	d.hooks.Invalidated(entity, deleted)
	if d.debug {
		d.log.Debug("cache invalidated", Fields{"entity": entity, "permanent": permanent, "deleted": deleted})
	}
	if agg.empty() {
		return nil
	}
	return agg
}

func (d *Dispatcher) delKey(ctx context.Context, entity string, tier Tier, errOut *error) int {
	key, err := d.keys.Build(entity, tier, nil)
	if err != nil {
		*errOut = err
		return 0
	}
	if err := d.backend.Del(ctx, key); err != nil {
		*errOut = err
		d.hooks.InvalidateFailed(entity, err)
		return 0
	}
	return 1
}

func (d *Dispatcher) delPattern(ctx context.Context, entity string, tier Tier, errOut *error) int {
	pattern := d.keys.Pattern(entity, tier)
	pd, ok := d.backend.(backend.PatternDeleter)
	if !ok {
		// documented limitation: without pattern deletion, fingerprinted
		// keys cannot be enumerated and expire only via TTL
		d.hooks.PatternUnsupported(pattern)
		if d.debug {
			d.log.Debug("backend lacks pattern deletion; queryset keys expire via TTL", Fields{"pattern": pattern})
		}
		return 0
	}
	n, err := pd.DelPattern(ctx, pattern)
	if err != nil {
		*errOut = err
		d.hooks.InvalidateFailed(entity, err)
	}
	return n
}
