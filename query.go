package cacheme

import "context"

// QueryRepr is the normalized representation of a query: the compiled
// statement text and its bound parameter values in positional order. The host
// data layer must expose it before execution so keys can be derived without
// touching the database. Filtered marks statements that narrow the row set
// (WHERE, LIMIT, ORDER BY, ...); unfiltered statements are whole-table scans
// and are eligible for the table tier.
type QueryRepr struct {
	Statement string
	Args      []any
	Filtered  bool
}

// Query is the execution collaborator the proxy wraps: it exposes the
// normalized representation for fingerprinting and materializes the row set
// on demand.
type Query[V any] interface {
	Repr() QueryRepr
	Run(ctx context.Context) ([]V, error)
}

type queryFunc[V any] struct {
	repr QueryRepr
	run  func(context.Context) ([]V, error)
}

func (q queryFunc[V]) Repr() QueryRepr                      { return q.repr }
func (q queryFunc[V]) Run(ctx context.Context) ([]V, error) { return q.run(ctx) }

// NewQuery adapts a plain function into a Query. Handy for ORM glue and tests.
func NewQuery[V any](repr QueryRepr, run func(context.Context) ([]V, error)) Query[V] {
	return queryFunc[V]{repr: repr, run: run}
}
