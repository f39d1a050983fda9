package taskpool

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"gfx.cafe/gfx/imgconv/lib/taskpool/metrics"
)

// Job is the completion handle of a submitted payload. It settles exactly
// once, either with a result or with an error.
type Job[P, R any] struct {
	ID uuid.UUID

	ctx        context.Context
	payload    P
	onProgress func(float64)

	// guarded by the pool mutex
	state      metrics.JobState
	created    time.Time
	dispatched time.Time
	worker     int
	stop       func() bool
	timer      *time.Timer
	span       trace.Span

	// written once before done is closed
	result R
	err    error
	done   chan struct{}
}

func newJob[P, R any](ctx context.Context, payload P, onProgress func(float64)) *Job[P, R] {
	return &Job[P, R]{
		ctx:        ctx,
		payload:    payload,
		onProgress: onProgress,

		state:   metrics.JobStateQueued,
		created: time.Now(),
		worker:  -1,
		done:    make(chan struct{}),
	}
}

// Done is closed when the job settles.
func (T *Job[P, R]) Done() <-chan struct{} {
	return T.done
}

// Result returns the outcome of a settled job, or ErrNotSettled.
func (T *Job[P, R]) Result() (R, error) {
	select {
	case <-T.done:
		return T.result, T.err
	default:
		return *new(R), ErrNotSettled
	}
}

// Wait blocks until the job settles or ctx is done. Giving up on ctx does not
// cancel the job; use the context passed to Submit for that.
func (T *Job[P, R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-T.done:
		return T.result, T.err
	case <-ctx.Done():
		// a job that settled before ctx was done keeps its outcome
		select {
		case <-T.done:
			return T.result, T.err
		default:
			return *new(R), ctx.Err()
		}
	}
}
