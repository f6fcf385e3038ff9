package cacheme

import (
	"context"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/cacheme/cacheme/queue"
)

// TaskInvalidate is the task name the queued invalidator enqueues under.
// Workers register Cache.InvalidateHandler for it.
const TaskInvalidate = "cacheme:invalidate"

// Invalidator is the strategy the cache routes invalidations through: inline
// (SyncInvalidator) or deferred to a background queue (QueuedInvalidator).
// Selected once at startup from Options.
type Invalidator interface {
	Schedule(ctx context.Context, entity string, permanent bool, tx TxContext)
}

// SyncInvalidator runs the dispatcher in the caller's context. The commit
// gate does not apply here: by the time a synchronous mutation call returns,
// deletion has been attempted.
type SyncInvalidator struct {
	dispatcher *Dispatcher
	warmer     *WarmerRunner
	warm       bool
}

var _ Invalidator = (*SyncInvalidator)(nil)

func (s *SyncInvalidator) Schedule(ctx context.Context, entity string, permanent bool, _ TxContext) {
	// dispatcher logs failures; nothing propagates to the mutating caller
	_ = s.dispatcher.Invalidate(ctx, entity, permanent)
	if s.warm {
		s.warmer.Run(ctx, entity)
	}
}

// invalidateTask is the queue payload.
type invalidateTask struct {
	Entity    string `msgpack:"entity"`
	Permanent bool   `msgpack:"permanent"`
	Warm      bool   `msgpack:"warm"`
}

// QueuedInvalidator defers dispatcher work to a background queue. With the
// commit gate active, enqueuing waits for the enclosing transaction to
// commit; a rollback means the work is never scheduled. Any enqueue failure
// degrades to the synchronous path, so correctness never depends on the queue
// being up.
type QueuedInvalidator struct {
	queue     queue.Queue
	queueName string
	onCommit  bool
	warm      bool
	sync      *SyncInvalidator
	log       Logger
	hooks     Hooks
}

var _ Invalidator = (*QueuedInvalidator)(nil)

func (qi *QueuedInvalidator) Schedule(ctx context.Context, entity string, permanent bool, tx TxContext) {
	enqueue := func() {
		payload, err := msgpack.Marshal(invalidateTask{Entity: entity, Permanent: permanent, Warm: qi.warm})
		if err == nil {
			err = qi.queue.Enqueue(ctx, TaskInvalidate, payload, qi.queueName)
		}
		if err != nil {
			qi.hooks.QueueFallback(entity, err)
			qi.log.Warn("async enqueue failed; invalidating synchronously", Fields{"entity": entity, "err": err})
			qi.sync.Schedule(ctx, entity, permanent, nil)
		}
	}
	if qi.onCommit && tx != nil {
		tx.OnCommit(enqueue)
		return
	}
	enqueue()
}
