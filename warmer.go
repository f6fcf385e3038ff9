package cacheme

import "context"

// WarmerFunc re-executes one configured query; evaluating it through a Proxy
// repopulates the cache under the appropriate key as a side effect.
type WarmerFunc func(ctx context.Context) error

// WarmerRunner executes an entity's warmers in registration order after an
// invalidation. A failing warmer is logged and skipped; partial pre-warm is
// acceptable since the cache self-heals on the next natural miss.
type WarmerRunner struct {
	reg   *Registry
	log   Logger
	hooks Hooks
}

func (w *WarmerRunner) Run(ctx context.Context, entity string) {
	entity = normalizeEntity(entity)
	for _, fn := range w.reg.Warmers(entity) {
		if err := fn(ctx); err != nil {
			w.hooks.WarmerFailed(entity, err)
			w.log.Warn("warmer failed; remaining warmers still run", Fields{"entity": entity, "err": err})
		}
	}
}
