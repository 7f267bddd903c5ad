// Package queue implements the outbound flow control for a chat connection:
// a FIFO of deferred sends drained on a fixed tick, never exceeding the
// per-tick allowance of the task's weight class. The server disconnects
// clients that overrun their quota, so the queue is the only path to the
// transport for rate-limited commands.
package queue

import (
	"math"
	"sync"
	"time"
)

// A Task is one deferred send. MaxPerTick is the per-tick allowance of the
// acting identity's weight class; zero means the queue default.
type Task struct {
	Fn         func()
	MaxPerTick int
}

// Options configure a Queue.
type Options struct {
	// TickInterval is the quota window period. Defaults to one second.
	TickInterval time.Duration

	// MaxPerTick is the default per-tick allowance for tasks that do not
	// carry their own. Zero means unlimited.
	MaxPerTick int

	// OnTaskFinished is called after each task returns, with the number of
	// tasks still queued.
	OnTaskFinished func(remaining int)

	// OnDrain is called whenever the queue runs empty after dispatching at
	// least one task.
	OnDrain func()
}

// A Queue dispatches tasks in enqueue order, up to the allowance per tick.
// Tasks run on the queue's own goroutine.
type Queue struct {
	mu      sync.Mutex
	opts    Options
	tasks   []Task
	used    int
	wake    chan struct{}
	stop    chan struct{}
	stopped bool
}

// New creates a queue and starts its tick loop.
func New(opts Options) *Queue {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}

	q := &Queue{
		opts: opts,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}

	go q.run()

	return q
}

// Push appends a task. If the current tick window has allowance left, the
// task is dispatched right away; otherwise it waits for a later tick.
func (q *Queue) Push(task Task) {
	if task.Fn == nil {
		return
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of queued, not yet dispatched tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.tasks)
}

// Stop halts the tick loop. Queued tasks are discarded.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.tasks = nil
	q.mu.Unlock()

	close(q.stop)
}

func (q *Queue) run() {
	ticker := time.NewTicker(q.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stop:
			return
		case <-ticker.C:
			q.mu.Lock()
			q.used = 0
			q.mu.Unlock()
			q.drain()
		case <-q.wake:
			q.drain()
		}
	}
}

// drain dispatches from the head until the queue empties or the window's
// allowance is spent.
func (q *Queue) drain() {
	ran := 0

	for {
		q.mu.Lock()
		if q.stopped || len(q.tasks) == 0 {
			q.mu.Unlock()
			break
		}

		task := q.tasks[0]
		if q.used >= q.allowance(task) {
			q.mu.Unlock()
			return
		}

		q.tasks = q.tasks[1:]
		q.used++
		remaining := len(q.tasks)
		q.mu.Unlock()

		task.Fn()
		ran++

		if q.opts.OnTaskFinished != nil {
			q.opts.OnTaskFinished(remaining)
		}
	}

	if ran > 0 && q.opts.OnDrain != nil {
		q.opts.OnDrain()
	}
}

func (q *Queue) allowance(task Task) int {
	limit := task.MaxPerTick
	if limit <= 0 {
		limit = q.opts.MaxPerTick
	}
	if limit <= 0 {
		return math.MaxInt
	}

	return limit
}

// PerTickAllowance converts a messages-per-minute quota to the per-tick
// allowance for the given tick interval, never below one.
func PerTickAllowance(perMinute int, tick time.Duration) int {
	allowance := int(float64(perMinute) * tick.Minutes())
	if allowance < 1 {
		allowance = 1
	}

	return allowance
}
