// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workpool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one task execution.
type Result int

const (
	// Success retires the task.
	Success Result = iota

	// Delay requeues the task at the back of the queue.
	Delay

	// Fail aborts the batch. Returning a non-nil error has the same
	// effect and is preferred because it carries the cause.
	Fail
)

// String returns the lowercase outcome name.
func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Delay:
		return "delay"
	case Fail:
		return "fail"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Task is one unit of work. It may be executed several times if it
// returns Delay.
type Task func() (Result, error)

// DefaultWorkers is the worker count when Config.Workers is zero.
const DefaultWorkers = 12

// DefaultProgressInterval is how many completions pass between
// progress log lines when Config.ProgressInterval is zero.
const DefaultProgressInterval = 50

var (
	// ErrCycle is returned by Wait when every queued task is delayed
	// and no task is running.
	ErrCycle = errors.New("workpool: all queued tasks are waiting on each other")

	// ErrTaskFailed wraps tasks that returned Fail without an error.
	ErrTaskFailed = errors.New("workpool: task failed")
)

// Config configures a Pool.
type Config struct {
	// Workers is the number of goroutines per batch. Zero means
	// DefaultWorkers.
	Workers int

	// ProgressInterval is the number of completed tasks between
	// progress log lines. Zero means DefaultProgressInterval;
	// negative disables progress logging.
	ProgressInterval int

	// ProgressMessage is the log message for progress lines.
	ProgressMessage string

	// Logger receives progress at Info and delays at Debug. Nil
	// means slog.Default().
	Logger *slog.Logger
}

// Pool starts batches with a fixed worker count. A Pool holds no
// goroutines between batches and may be reused.
type Pool struct {
	workers          int
	progressInterval int
	progressMessage  string
	logger           *slog.Logger
}

// New returns a Pool for config.
func New(config Config) *Pool {
	pool := &Pool{
		workers:          config.Workers,
		progressInterval: config.ProgressInterval,
		progressMessage:  config.ProgressMessage,
		logger:           config.Logger,
	}
	if pool.workers <= 0 {
		pool.workers = DefaultWorkers
	}
	if pool.progressInterval == 0 {
		pool.progressInterval = DefaultProgressInterval
	}
	if pool.progressMessage == "" {
		pool.progressMessage = "processing tasks"
	}
	if pool.logger == nil {
		pool.logger = slog.Default()
	}
	return pool
}

// Workers returns the number of goroutines each batch runs.
func (p *Pool) Workers() int {
	return p.workers
}

// Stats summarizes a finished batch.
type Stats struct {
	// Completed counts tasks that returned Success.
	Completed int

	// Delays counts Delay results across all tasks.
	Delays int

	// Discarded counts tasks still queued when the batch aborted.
	Discarded int
}

type entry struct {
	name string
	task Task

	// readyAfter is the generation at which the delayed attempt
	// started. The task is runnable once the batch generation exceeds
	// it, so a completion that lands while the attempt is running
	// makes it runnable again immediately.
	readyAfter uint64
	delayed    bool
}

// Batch is one run of tasks. Push tasks, then call Wait exactly once.
type Batch struct {
	pool  *Pool
	group errgroup.Group

	mu sync.Mutex

	// workAvailable is signalled when a task is queued, when the
	// generation advances, and when the batch finishes.
	workAvailable *sync.Cond

	queue       []*entry
	outstanding int
	running     int
	generation  uint64
	sealed      bool
	failure     error
	stats       Stats
}

// Start launches the pool's workers for a new batch.
func (p *Pool) Start() *Batch {
	batch := &Batch{pool: p}
	batch.workAvailable = sync.NewCond(&batch.mu)
	for range p.workers {
		batch.group.Go(batch.work)
	}
	return batch
}

// Push enqueues a task. Pushing after Wait has returned is a no-op.
func (b *Batch) Push(name string, task Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failure != nil || (b.sealed && b.outstanding == 0) {
		return
	}
	b.queue = append(b.queue, &entry{name: name, task: task})
	b.outstanding++
	b.workAvailable.Signal()
}

// Wait blocks until every pushed task has succeeded or one has
// failed. No tasks may be pushed by the caller after Wait is called;
// tasks themselves are never pushed from inside the pool.
func (b *Batch) Wait() (Stats, error) {
	b.mu.Lock()
	b.sealed = true
	b.workAvailable.Broadcast()
	b.mu.Unlock()

	err := b.group.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.Discarded = len(b.queue)
	b.queue = nil
	return b.stats, err
}

// next removes and returns the first runnable entry, or nil.
func (b *Batch) next() *entry {
	for i, e := range b.queue {
		if e.delayed && e.readyAfter >= b.generation {
			continue
		}
		b.queue = append(b.queue[:i], b.queue[i+1:]...)
		return e
	}
	return nil
}

func (b *Batch) done() bool {
	return b.failure != nil || (b.sealed && b.outstanding == 0)
}

func (b *Batch) fail(err error) error {
	if b.failure == nil {
		b.failure = err
	}
	b.workAvailable.Broadcast()
	return err
}

func (b *Batch) work() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for {
		if b.done() {
			return nil
		}
		e := b.next()
		if e == nil {
			if b.sealed && b.running == 0 && len(b.queue) > 0 {
				names := make([]string, 0, len(b.queue))
				for _, waiting := range b.queue {
					names = append(names, waiting.name)
				}
				return b.fail(fmt.Errorf("%w: %d delayed tasks %v", ErrCycle, len(names), names))
			}
			b.workAvailable.Wait()
			continue
		}

		b.running++
		startGeneration := b.generation
		b.mu.Unlock()
		result, err := e.task()
		b.mu.Lock()
		b.running--

		if err == nil && result == Fail {
			err = ErrTaskFailed
		}
		if err != nil {
			if b.failure != nil {
				return nil
			}
			return b.fail(fmt.Errorf("task %s: %w", e.name, err))
		}

		switch result {
		case Delay:
			b.stats.Delays++
			e.delayed = true
			e.readyAfter = startGeneration
			b.queue = append(b.queue, e)
			b.pool.logger.Debug("task not ready, requeued", "task", e.name)
			if b.running == 0 {
				// A waiting worker may need to declare a cycle.
				b.workAvailable.Broadcast()
			}
		default:
			b.outstanding--
			b.generation++
			b.stats.Completed++
			if interval := b.pool.progressInterval; interval > 0 && b.stats.Completed%interval == 0 {
				b.pool.logger.Info(b.pool.progressMessage,
					"completed", b.stats.Completed,
					"remaining", b.outstanding,
				)
			}
			b.workAvailable.Broadcast()
		}
	}
}
