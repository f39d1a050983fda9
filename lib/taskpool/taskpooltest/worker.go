// Package taskpooltest provides scripted workers for exercising a taskpool.Pool.
package taskpooltest

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"gfx.cafe/gfx/imgconv/lib/taskpool"
)

// Posted is one request the pool handed to a worker.
type Posted[P, R any] struct {
	Worker  *Worker[P, R]
	Request taskpool.Request[P]
}

// Factory creates Workers and records everything posted to them. When Handle
// is set each request is answered by it on its own goroutine instead of being
// published on Posted.
type Factory[P, R any] struct {
	Handle func(w *Worker[P, R], req taskpool.Request[P])

	Posted chan Posted[P, R]

	inflight    atomic.Int64
	maxInflight atomic.Int64
	violations  atomic.Int64

	workers []*Worker[P, R]
	mu      sync.Mutex
}

func NewFactory[P, R any]() *Factory[P, R] {
	return &Factory[P, R]{
		Posted: make(chan Posted[P, R], 1024),
	}
}

func (T *Factory[P, R]) NewWorker() taskpool.Worker[P, R] {
	T.mu.Lock()
	defer T.mu.Unlock()

	w := newWorker(T, len(T.workers))
	T.workers = append(T.workers, w)
	return w
}

func (T *Factory[P, R]) Workers() []*Worker[P, R] {
	T.mu.Lock()
	defer T.mu.Unlock()

	return append([]*Worker[P, R](nil), T.workers...)
}

// MaxInflight is the highest number of requests outstanding at once.
func (T *Factory[P, R]) MaxInflight() int {
	return int(T.maxInflight.Load())
}

// Violations counts requests posted to a worker that already had one.
func (T *Factory[P, R]) Violations() int {
	return int(T.violations.Load())
}

// Expect waits for the next posted request.
func (T *Factory[P, R]) Expect(t testing.TB) Posted[P, R] {
	t.Helper()

	select {
	case p := <-T.Posted:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a request to be posted")
		return Posted[P, R]{}
	}
}

// ExpectNone fails if a request is posted within d.
func (T *Factory[P, R]) ExpectNone(t testing.TB, d time.Duration) {
	t.Helper()

	select {
	case p := <-T.Posted:
		t.Fatalf("unexpected request %s posted to worker %d", p.Request.ID, p.Worker.Index)
	case <-time.After(d):
	}
}

func (T *Factory[P, R]) posted() {
	n := T.inflight.Add(1)
	for {
		prev := T.maxInflight.Load()
		if n <= prev || T.maxInflight.CompareAndSwap(prev, n) {
			return
		}
	}
}

// Worker is a goroutine backed taskpool.Worker whose replies are scripted by
// the test.
type Worker[P, R any] struct {
	Index int

	factory *Factory[P, R]

	current uuid.UUID
	mu      sync.Mutex

	emit       chan taskpool.Message[R]
	messages   chan taskpool.Message[R]
	terminated chan struct{}
	terminate  sync.Once
}

func newWorker[P, R any](factory *Factory[P, R], index int) *Worker[P, R] {
	w := &Worker[P, R]{
		Index:      index,
		factory:    factory,
		emit:       make(chan taskpool.Message[R]),
		messages:   make(chan taskpool.Message[R]),
		terminated: make(chan struct{}),
	}
	go w.run()
	return w
}

func (T *Worker[P, R]) run() {
	defer close(T.messages)

	for {
		select {
		case msg := <-T.emit:
			select {
			case T.messages <- msg:
			case <-T.terminated:
				return
			}
		case <-T.terminated:
			return
		}
	}
}

func (T *Worker[P, R]) Post(req taskpool.Request[P]) {
	T.mu.Lock()
	if T.current != uuid.Nil {
		T.factory.violations.Add(1)
	}
	T.current = req.ID
	T.mu.Unlock()

	T.factory.posted()

	if T.factory.Handle != nil {
		go T.factory.Handle(T, req)
		return
	}
	T.factory.Posted <- Posted[P, R]{
		Worker:  T,
		Request: req,
	}
}

func (T *Worker[P, R]) Messages() <-chan taskpool.Message[R] {
	return T.messages
}

func (T *Worker[P, R]) Terminate() {
	T.terminate.Do(func() {
		close(T.terminated)
	})
}

func (T *Worker[P, R]) Terminated() bool {
	select {
	case <-T.terminated:
		return true
	default:
		return false
	}
}

// Emit sends msg to the pool. It reports false once the worker is terminated.
func (T *Worker[P, R]) Emit(msg taskpool.Message[R]) bool {
	if msg.Terminal() {
		T.mu.Lock()
		if msg.ID == T.current {
			T.current = uuid.Nil
			T.factory.inflight.Add(-1)
		}
		T.mu.Unlock()
	}

	select {
	case T.emit <- msg:
		return true
	case <-T.terminated:
		return false
	}
}

func (T *Worker[P, R]) Progress(id uuid.UUID, progress float64) bool {
	return T.Emit(taskpool.ProgressMessage[R](id, progress))
}

func (T *Worker[P, R]) Reply(id uuid.UUID, result R) bool {
	return T.Emit(taskpool.ResultMessage(id, result))
}

func (T *Worker[P, R]) Fail(id uuid.UUID, err error) bool {
	return T.Emit(taskpool.ErrorMessage[R](id, err))
}
