package taskpool

import (
	"time"

	"github.com/google/uuid"

	"gfx.cafe/gfx/imgconv/lib/taskpool/metrics"
)

// slot is one worker and the job it currently owns. Guarded by the pool mutex.
type slot[P, R any] struct {
	index  int
	worker Worker[P, R]
	job    *Job[P, R]

	jobCount int

	lastMetricsRead time.Time
	state           metrics.WorkerState
	since           time.Time
	util            [metrics.WorkerStateCount]time.Duration
}

func newSlot[P, R any](index int, worker Worker[P, R]) *slot[P, R] {
	return &slot[P, R]{
		index:  index,
		worker: worker,

		state: metrics.WorkerStateIdle,
		since: time.Now(),
	}
}

func (T *slot[P, R]) setState(state metrics.WorkerState) {
	now := time.Now()

	var since time.Duration
	if T.since.Before(T.lastMetricsRead) {
		since = now.Sub(T.lastMetricsRead)
	} else {
		since = now.Sub(T.since)
	}
	T.util[T.state] += since

	T.state = state
	T.since = now
}

func (T *slot[P, R]) acquire(job *Job[P, R]) {
	T.job = job
	T.setState(metrics.WorkerStateBusy)
}

func (T *slot[P, R]) abandon() {
	T.setState(metrics.WorkerStateAbandoned)
}

func (T *slot[P, R]) release() *Job[P, R] {
	job := T.job
	T.job = nil
	T.jobCount++
	T.setState(metrics.WorkerStateIdle)
	return job
}

func (T *slot[P, R]) readMetrics(m *metrics.Worker) {
	now := time.Now()

	m.Time = now

	m.State = T.state
	m.Since = T.since
	m.Job = uuid.Nil
	if T.job != nil {
		m.Job = T.job.ID
	}
	m.JobCount = T.jobCount

	m.Utilization = T.util
	T.util = [metrics.WorkerStateCount]time.Duration{}

	var since time.Duration
	if m.Since.Before(T.lastMetricsRead) {
		since = now.Sub(T.lastMetricsRead)
	} else {
		since = now.Sub(m.Since)
	}
	m.Utilization[m.State] += since

	T.lastMetricsRead = now
}
