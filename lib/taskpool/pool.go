package taskpool

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"gfx.cafe/gfx/imgconv/lib/instrumentation/prom"
	"gfx.cafe/gfx/imgconv/lib/taskpool/metrics"
	"gfx.cafe/gfx/imgconv/lib/util/ring"
)

// Pool dispatches jobs to a fixed set of pre-warmed workers. Jobs that find
// every worker busy wait in a FIFO queue. Each worker owns at most one job at
// a time, and its messages are routed to that job by correlation id.
type Pool[P, R any] struct {
	config Config
	labels prom.PoolLabels

	slots  []*slot[P, R]
	idle   ring.Ring[*slot[P, R]]
	queue  ring.Ring[*Job[P, R]]
	queued int
	jobs   map[uuid.UUID]*Job[P, R]
	closed bool

	wg sync.WaitGroup
	mu sync.Mutex
}

// NewPool creates config.Size workers from factory and starts routing their
// messages.
func NewPool[P, R any](factory WorkerFactory[P, R], config Config) *Pool[P, R] {
	config = config.withDefaults()

	T := &Pool[P, R]{
		config: config,
		labels: prom.PoolLabels{
			Pool: config.Name,
		},
		slots: make([]*slot[P, R], 0, config.Size),
		idle:  ring.MakeRing[*slot[P, R]](config.Size),
		jobs:  make(map[uuid.UUID]*Job[P, R]),
	}

	for i := 0; i < config.Size; i++ {
		s := newSlot(i, factory.NewWorker())
		T.slots = append(T.slots, s)
		T.idle.PushBack(s)
	}

	T.wg.Add(len(T.slots))
	for _, s := range T.slots {
		go T.listen(s)
	}

	prom.Pool.Workers(T.labels).Set(float64(len(T.slots)))
	T.observe()

	T.config.Logger.Info(
		"task pool started",
		zap.String("pool", T.config.Name),
		zap.Int("workers", len(T.slots)),
	)

	return T
}

// Submit queues payload and dispatches it as soon as a worker is idle.
// onProgress may be nil; it is called from the pool's routing goroutines.
// Cancelling ctx before the job settles rejects it with ctx.Err().
func (T *Pool[P, R]) Submit(ctx context.Context, payload P, onProgress func(float64)) *Job[P, R] {
	if ctx == nil {
		ctx = context.Background()
	}

	job := newJob[P, R](ctx, payload, onProgress)
	_, job.span = T.config.Tracer.Start(ctx, "taskpool.job",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("pool", T.config.Name)),
	)

	T.mu.Lock()
	defer T.mu.Unlock()

	if T.closed {
		job.ID = uuid.New()
		T.settle(job, *new(R), ErrPoolClosed)
		return job
	}

	job.ID = T.newID()
	job.span.SetAttributes(attribute.String("job", job.ID.String()))
	T.jobs[job.ID] = job

	T.queue.PushBack(job)
	T.queued++
	prom.Pool.Submitted(T.labels).Inc()

	if ctx.Done() != nil {
		job.stop = context.AfterFunc(ctx, func() {
			T.abort(job, ctx.Err())
		})
	}

	T.dispatch()
	T.observe()

	return job
}

// Run submits payload and waits for its result.
func (T *Pool[P, R]) Run(ctx context.Context, payload P, onProgress func(float64)) (R, error) {
	return T.Submit(ctx, payload, onProgress).Wait(ctx)
}

// newID returns a correlation id not used by any outstanding job.
func (T *Pool[P, R]) newID() uuid.UUID {
	for {
		id := uuid.New()
		if _, ok := T.jobs[id]; !ok {
			return id
		}
	}
}

// dispatch hands queued jobs to idle workers in submission order.
func (T *Pool[P, R]) dispatch() {
	for T.idle.Length() > 0 {
		job, ok := T.queue.PopFront()
		if !ok {
			return
		}
		if job.state != metrics.JobStateQueued {
			// settled by cancellation while it was waiting
			continue
		}
		T.queued--

		if err := job.ctx.Err(); err != nil {
			T.settle(job, *new(R), err)
			continue
		}

		s, _ := T.idle.PopFront()
		T.assign(s, job)
	}
}

func (T *Pool[P, R]) assign(s *slot[P, R], job *Job[P, R]) {
	now := time.Now()

	job.state = metrics.JobStateDispatched
	job.dispatched = now
	job.worker = s.index
	s.acquire(job)

	if T.config.JobTimeout > 0 {
		job.timer = time.AfterFunc(T.config.JobTimeout, func() {
			T.abort(job, ErrJobTimeout)
		})
	}

	job.span.AddEvent("dispatched", trace.WithAttributes(attribute.Int("worker", s.index)))
	prom.Operation.Wait(T.labels.ToOperation("dispatched")).Observe(float64(now.Sub(job.created)) / float64(time.Millisecond))
	T.config.Logger.Debug(
		"dispatched job",
		zap.String("pool", T.config.Name),
		zap.Stringer("job", job.ID),
		zap.Int("worker", s.index),
	)

	req := Request[P]{
		ID:      job.ID,
		Payload: job.payload,
	}
	// the payload now belongs to the worker
	job.payload = *new(P)
	s.worker.Post(req)
}

// settle completes job once. The caller must hold the mutex.
func (T *Pool[P, R]) settle(job *Job[P, R], result R, err error) bool {
	if job.state.Terminal() {
		return false
	}

	outcome := "completed"
	if err != nil {
		outcome = "failed"
		job.state = metrics.JobStateFailed
		job.span.RecordError(err)
		job.span.SetStatus(codes.Error, err.Error())
	} else {
		job.state = metrics.JobStateCompleted
		job.span.SetStatus(codes.Ok, "")
	}
	job.span.End()

	if job.stop != nil {
		job.stop()
	}
	if job.timer != nil {
		job.timer.Stop()
	}
	job.onProgress = nil

	if job.dispatched.IsZero() {
		// never reached a worker, nothing else refers to it
		delete(T.jobs, job.ID)
	} else {
		prom.Operation.Execution(T.labels.ToOperation(outcome)).Observe(float64(time.Since(job.dispatched)) / float64(time.Millisecond))
	}
	prom.Operation.Settled(T.labels.ToOperation(outcome)).Inc()

	job.result = result
	job.err = err
	close(job.done)

	return true
}

// abort rejects a job that has not settled yet. A dispatched job keeps its
// worker busy until the worker's terminal message for it arrives.
func (T *Pool[P, R]) abort(job *Job[P, R], err error) {
	T.mu.Lock()
	defer T.mu.Unlock()

	if T.closed {
		return
	}

	switch job.state {
	case metrics.JobStateQueued:
		T.queued--
		T.settle(job, *new(R), err)
	case metrics.JobStateDispatched:
		T.settle(job, *new(R), err)
		if s := T.slots[job.worker]; s.job == job {
			s.abandon()
		}
		T.config.Logger.Warn(
			"abandoned dispatched job",
			zap.String("pool", T.config.Name),
			zap.Stringer("job", job.ID),
			zap.Int("worker", job.worker),
			zap.Error(err),
		)
	default:
		return
	}

	T.observe()
}

func (T *Pool[P, R]) listen(s *slot[P, R]) {
	defer T.wg.Done()

	for msg := range s.worker.Messages() {
		T.route(s, msg)
	}
}

func (T *Pool[P, R]) route(s *slot[P, R], msg Message[R]) {
	T.mu.Lock()
	job := s.job
	if T.closed || job == nil || job.ID != msg.ID {
		T.mu.Unlock()

		prom.Pool.Ignored(T.labels).Inc()
		T.config.Logger.Debug(
			"ignoring worker message",
			zap.String("pool", T.config.Name),
			zap.Int("worker", s.index),
			zap.Stringer("id", msg.ID),
		)
		return
	}
	var onProgress func(float64)
	if msg.Progress != nil && job.state == metrics.JobStateDispatched {
		onProgress = job.onProgress
	}
	T.mu.Unlock()

	if onProgress != nil {
		T.progress(job, onProgress, *msg.Progress)
	}

	if !msg.Terminal() {
		return
	}

	T.mu.Lock()
	defer T.mu.Unlock()

	if T.closed || s.job != job {
		return
	}

	s.release()
	delete(T.jobs, job.ID)
	T.idle.PushBack(s)

	if msg.Result != nil {
		if msg.Err != nil {
			T.config.Logger.Warn(
				"worker sent both result and error, keeping result",
				zap.String("pool", T.config.Name),
				zap.Stringer("job", job.ID),
				zap.NamedError("discarded", msg.Err),
			)
		}
		T.settle(job, *msg.Result, nil)
	} else {
		T.settle(job, *new(R), msg.Err)
	}

	T.dispatch()
	T.observe()
}

// progress runs a caller callback, containing any panic it raises.
func (T *Pool[P, R]) progress(job *Job[P, R], fn func(float64), value float64) {
	defer func() {
		if r := recover(); r != nil {
			T.config.Logger.Error(
				"progress callback panicked",
				zap.String("pool", T.config.Name),
				zap.Stringer("job", job.ID),
				zap.Any("panic", r),
			)
		}
	}()

	fn(value)
}

func (T *Pool[P, R]) observe() {
	prom.Pool.Busy(T.labels).Set(float64(len(T.slots) - T.idle.Length()))
	prom.Pool.Queued(T.labels).Set(float64(T.queued))
}

func (T *Pool[P, R]) Size() int {
	return len(T.slots)
}

// Queued returns the number of jobs waiting for a worker.
func (T *Pool[P, R]) Queued() int {
	T.mu.Lock()
	defer T.mu.Unlock()

	return T.queued
}

// Busy returns the number of workers that own a job.
func (T *Pool[P, R]) Busy() int {
	T.mu.Lock()
	defer T.mu.Unlock()

	return len(T.slots) - T.idle.Length()
}

func (T *Pool[P, R]) ReadMetrics(m *metrics.Pool) {
	T.mu.Lock()
	defer T.mu.Unlock()

	if m.Workers == nil {
		m.Workers = make(map[int]metrics.Worker)
	}
	for _, s := range T.slots {
		var w metrics.Worker
		s.readMetrics(&w)
		m.Workers[s.index] = w
	}

	if m.Jobs == nil {
		m.Jobs = make(map[uuid.UUID]metrics.Job)
	}
	for id, job := range T.jobs {
		m.Jobs[id] = metrics.Job{
			State:      job.state,
			Created:    job.created,
			Dispatched: job.dispatched,
			Worker:     job.worker,
		}
	}
}

// Close terminates every worker and drops the queue. Jobs still queued or in
// flight are left unsettled; callers bound their wait with Job.Wait.
func (T *Pool[P, R]) Close() {
	T.mu.Lock()
	if T.closed {
		T.mu.Unlock()
		return
	}
	T.closed = true

	for _, job := range T.jobs {
		if job.stop != nil {
			job.stop()
		}
		if job.timer != nil {
			job.timer.Stop()
		}
		if !job.state.Terminal() {
			job.span.AddEvent("pool closed")
			job.span.End()
		}
	}
	dropped := T.queued
	T.queue.Clear()
	T.queued = 0
	T.observe()
	T.mu.Unlock()

	for _, s := range T.slots {
		s.worker.Terminate()
	}
	T.wg.Wait()

	T.config.Logger.Info(
		"task pool closed",
		zap.String("pool", T.config.Name),
		zap.Int("dropped", dropped),
	)
}
