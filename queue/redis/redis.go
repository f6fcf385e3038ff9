// Package redis implements the queue contract on a Redis list: LPUSH to
// enqueue, BRPOP in the worker. At-least-once semantics only; a worker dying
// mid-task loses that task, which the caching layer tolerates because TTL
// expiry bounds any missed invalidation.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	q "github.com/cacheme/cacheme/queue"
)

var ErrNilClient = errors.New("redis queue: nil client")

const defaultNamespace = "cacheme"

// envelope is the on-list task frame.
type envelope struct {
	Task    string `msgpack:"task"`
	Payload []byte `msgpack:"payload"`
}

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this queue exclusively owns the client

	// Namespace prefixes list keys; "" => "cacheme".
	Namespace string
}

// Queue is the producer side.
type Queue struct {
	rdb         goredis.UniversalClient
	ns          string
	closeClient bool
}

var _ q.Queue = (*Queue)(nil)

func New(cfg Config) (*Queue, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	return &Queue{rdb: cfg.Client, ns: ns, closeClient: cfg.CloseClient}, nil
}

func listKey(ns, queueName string) string {
	if queueName == "" {
		return ns + ":tasks"
	}
	return ns + ":tasks:" + queueName
}

func (p *Queue) Enqueue(ctx context.Context, task string, payload []byte, queueName string) error {
	b, err := msgpack.Marshal(envelope{Task: task, Payload: payload})
	if err != nil {
		return err
	}
	if err := p.rdb.LPush(ctx, listKey(p.ns, queueName), b).Err(); err != nil {
		return fmt.Errorf("%w: %v", q.ErrUnavailable, err)
	}
	return nil
}

func (p *Queue) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

// Worker consumes tasks from one or more named queues and dispatches them to
// registered handlers. Unknown task names are dropped with a log line.
type Worker struct {
	rdb      goredis.UniversalClient
	queues   []string
	popWait  time.Duration
	handlers map[string]q.Handler
	log      func(msg string, err error)

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

type WorkerConfig struct {
	Client goredis.UniversalClient

	// Namespace must match the producer's; "" => "cacheme".
	Namespace string

	// QueueNames to consume; nil => the default queue only.
	QueueNames []string

	// PopWait is the BRPOP block timeout; 0 => 5s.
	PopWait time.Duration

	// Log receives handler and transport errors; nil discards them.
	Log func(msg string, err error)
}

func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	names := cfg.QueueNames
	if len(names) == 0 {
		names = []string{""}
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = listKey(ns, n)
	}
	logf := cfg.Log
	if logf == nil {
		logf = func(string, error) {}
	}
	return &Worker{
		rdb:      cfg.Client,
		queues:   keys,
		popWait:  coalesceDur(cfg.PopWait, 5*time.Second),
		handlers: make(map[string]q.Handler),
		log:      logf,
		stopCh:   make(chan struct{}),
	}, nil
}

// Handle registers a handler for a task name. Call before Run.
func (w *Worker) Handle(task string, h q.Handler) {
	w.handlers[task] = h
}

// Run blocks consuming tasks until ctx is canceled or Stop is called.
func (w *Worker) Run(ctx context.Context) {
	w.wg.Add(1)
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		res, err := w.rdb.BRPop(ctx, w.popWait, w.queues...).Result()
		if err == goredis.Nil {
			continue // idle timeout
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log("queue pop failed", err)
			// brief backoff so a dead broker doesn't spin the loop
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			}
			continue
		}
		if len(res) != 2 {
			continue
		}
		w.dispatch(ctx, []byte(res[1]))
	}
}

// Stop terminates Run and waits for the in-flight task to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

func (w *Worker) dispatch(ctx context.Context, raw []byte) {
	var env envelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		w.log("queue frame decode failed", err)
		return
	}
	h, ok := w.handlers[env.Task]
	if !ok {
		w.log("no handler for task "+env.Task, nil)
		return
	}
	if err := h(ctx, env.Payload); err != nil {
		w.log("task "+env.Task+" failed", err)
	}
}

func coalesceDur(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return v
}
