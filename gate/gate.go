// Package gate admits scan work under a fixed concurrency limit.
//
// Tasks beyond the limit wait in an explicit FIFO queue. A finishing task
// hands its slot directly to the queue head, so waiting tasks start in the
// order they were submitted.
package gate

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/use-agent/fraudlens/metrics"
	"github.com/use-agent/fraudlens/models"
)

// ErrTaskPanicked is returned by Future.Wait when the task panicked.
var ErrTaskPanicked = errors.New("gate: task panicked")

// Task is a unit of work admitted by the gate.
type Task func() error

// Future tracks one submitted task.
type Future struct {
	done chan struct{}
	err  error
}

// Done is closed once the task has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task finishes and returns its error.
func (f *Future) Wait() error {
	<-f.done
	return f.err
}

type entry struct {
	run    Task
	future *Future
}

// Gate bounds the number of concurrently running tasks.
type Gate struct {
	mu     sync.Mutex
	limit  int
	active int
	queue  []*entry
	idle   []chan struct{}
}

// New creates a Gate admitting at most limit tasks at once.
func New(limit int) *Gate {
	if limit < 1 {
		limit = 1
	}
	return &Gate{limit: limit}
}

// Submit enqueues fn. It starts immediately when a slot is free, otherwise
// it waits behind every previously submitted task. Submit never blocks.
func (g *Gate) Submit(fn Task) *Future {
	e := &entry{run: fn, future: &Future{done: make(chan struct{})}}

	g.mu.Lock()
	if g.active < g.limit {
		g.active++
		g.publishLocked()
		g.mu.Unlock()
		go g.execute(e)
		return e.future
	}
	g.queue = append(g.queue, e)
	g.publishLocked()
	g.mu.Unlock()
	return e.future
}

func (g *Gate) execute(e *entry) {
	defer g.finish()
	defer close(e.future.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("gate: task panicked", "panic", r)
			e.future.err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	e.future.err = e.run()
}

// finish releases the caller's slot. When work is queued the slot passes
// straight to the queue head and active stays unchanged.
func (g *Gate) finish() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.queue) > 0 {
		next := g.queue[0]
		g.queue[0] = nil
		g.queue = g.queue[1:]
		g.publishLocked()
		go g.execute(next)
		return
	}

	g.active--
	g.publishLocked()
	if g.active == 0 {
		for _, ch := range g.idle {
			close(ch)
		}
		g.idle = nil
	}
}

// OnIdle returns a channel closed once no task is running or queued.
// It is already closed when the gate is idle at call time.
func (g *Gate) OnIdle() <-chan struct{} {
	ch := make(chan struct{})

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == 0 && len(g.queue) == 0 {
		close(ch)
		return ch
	}
	g.idle = append(g.idle, ch)
	return ch
}

// Stats returns a snapshot of the gate's occupancy.
func (g *Gate) Stats() models.GateStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return models.GateStats{Active: g.active, Queued: len(g.queue), Limit: g.limit}
}

func (g *Gate) publishLocked() {
	metrics.GateActive.Set(float64(g.active))
	metrics.GateQueued.Set(float64(len(g.queue)))
}

// Run submits fn and waits for its result.
func Run[T any](g *Gate, fn func() (T, error)) (T, error) {
	var out T
	err := g.Submit(func() error {
		v, err := fn()
		out = v
		return err
	}).Wait()
	return out, err
}
