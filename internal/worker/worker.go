// Package worker provides the background maintenance scheduler: a
// single-consumer FIFO task queue decoupled from request-handling
// goroutines. Enqueue never blocks; the queue is unbounded and tasks
// run strictly in submission order on one dedicated goroutine.
package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task is one queued unit of background work.
type Task struct {
	ID   string
	Name string
	Fn   func(ctx context.Context) error
}

// Queue is a single-consumer background task queue. A failing or
// panicking task is logged and never stops the worker or affects other
// queued tasks. Tasks queued but not started when Close is called are
// abandoned; there is no persistence or redelivery.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []Task
	closed bool
	busy   bool

	done chan struct{}
}

// New creates a queue and starts its consumer goroutine.
func New() *Queue {
	q := &Queue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Enqueue submits a task and returns immediately. The returned ID is
// only used for log correlation.
func (q *Queue) Enqueue(name string, fn func(ctx context.Context) error) string {
	id := uuid.NewString()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		log.Printf("Warning: task %q submitted after queue close; dropped", name)
		return id
	}
	q.tasks = append(q.tasks, Task{ID: id, Name: name, Fn: fn})
	q.cond.Signal()
	return id
}

// Len returns the number of tasks waiting (not including a running one).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Drain blocks until every queued task has finished or ctx is done.
func (q *Queue) Drain(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		q.mu.Lock()
		idle := (len(q.tasks) == 0 && !q.busy) || q.closed
		q.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			return nil
		case <-ticker.C:
		}
	}
}

// Close stops the consumer. A task already running finishes; queued
// tasks are abandoned.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			if n := len(q.tasks); n > 0 {
				log.Printf("worker: abandoning %d queued tasks on shutdown", n)
			}
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.busy = true
		q.mu.Unlock()

		q.execute(task)

		q.mu.Lock()
		q.busy = false
		q.mu.Unlock()
	}
}

func (q *Queue) execute(task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Warning: task %s (%s) panicked: %v", task.Name, task.ID, r)
		}
	}()
	if err := task.Fn(context.Background()); err != nil {
		log.Printf("Warning: task %s (%s) failed: %v", task.Name, task.ID, err)
	}
}
