package cacheme

import "sync"

// TxContext is the view the scheduler needs of the enclosing database
// transaction: enough to defer work until commit. A rolled-back transaction
// never runs the deferred functions.
type TxContext interface {
	OnCommit(fn func())
}

// CommitHook is a small TxContext implementation for data-layer glue and
// tests. The glue wires Commit/Rollback to the driver's transaction outcome.
// OnCommit after Commit runs the function immediately, matching the
// "no transaction active" semantics.
type CommitHook struct {
	mu         sync.Mutex
	fns        []func()
	committed  bool
	rolledBack bool
}

var _ TxContext = (*CommitHook)(nil)

func (h *CommitHook) OnCommit(fn func()) {
	h.mu.Lock()
	if h.rolledBack {
		h.mu.Unlock()
		return
	}
	if h.committed {
		h.mu.Unlock()
		fn()
		return
	}
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

// Commit runs every deferred function in registration order.
func (h *CommitHook) Commit() {
	h.mu.Lock()
	if h.committed || h.rolledBack {
		h.mu.Unlock()
		return
	}
	h.committed = true
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Rollback discards the deferred functions.
func (h *CommitHook) Rollback() {
	h.mu.Lock()
	h.rolledBack = true
	h.fns = nil
	h.mu.Unlock()
}
