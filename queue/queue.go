// Package queue defines the background task-queue collaborator used by the
// async invalidation path. The dispatcher treats it as an opaque at-least-once
// work dispatcher; correctness never depends on it being reachable, because
// the scheduler falls back to synchronous invalidation on any enqueue error.
package queue

import (
	"context"
	"errors"
)

// ErrUnavailable signals that no worker/broker is reachable. Callers degrade
// to running the work inline.
var ErrUnavailable = errors.New("queue: unavailable")

// Handler processes one dequeued task payload. Returning an error only logs;
// delivery is at-least-once and the work itself must be idempotent.
type Handler func(ctx context.Context, payload []byte) error

// Queue accepts named tasks for background execution. queueName optionally
// routes the task to a named queue/partition; "" uses the default. Routing is
// configuration pass-through with no effect on correctness.
type Queue interface {
	Enqueue(ctx context.Context, task string, payload []byte, queueName string) error
	Close(ctx context.Context) error
}
