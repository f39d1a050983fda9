package metrics

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Worker struct {
	Time time.Time

	State WorkerState
	// Job is the job currently owned by the worker, uuid.Nil when idle.
	Job   uuid.UUID
	Since time.Time

	// Utilization is the time spent in each state since the last read.
	Utilization [WorkerStateCount]time.Duration

	JobCount int
}

type Job struct {
	State      JobState
	Created    time.Time
	Dispatched time.Time
	Worker     int
}

type Pool struct {
	Workers map[int]Worker
	Jobs    map[uuid.UUID]Job
}

func (T *Pool) Clear() {
	clear(T.Workers)
	clear(T.Jobs)
}

func (T *Pool) BusyCount() int {
	count := 0
	for _, worker := range T.Workers {
		if worker.State != WorkerStateIdle {
			count++
		}
	}
	return count
}

func (T *Pool) QueuedCount() int {
	count := 0
	for _, job := range T.Jobs {
		if job.State == JobStateQueued {
			count++
		}
	}
	return count
}

// AverageWaitTime is the mean time queued jobs have been waiting for a worker.
func (T *Pool) AverageWaitTime() time.Duration {
	now := time.Now()

	var sum time.Duration
	count := 0
	for _, job := range T.Jobs {
		if job.State != JobStateQueued {
			continue
		}
		sum += now.Sub(job.Created)
		count++
	}

	if count == 0 {
		return 0
	}
	return sum / time.Duration(count)
}

func (T *Pool) AverageUtilization() float64 {
	var idle, active time.Duration
	for _, worker := range T.Workers {
		idle += worker.Utilization[WorkerStateIdle]
		active += worker.Utilization[WorkerStateBusy] + worker.Utilization[WorkerStateAbandoned]
	}

	if idle+active == 0 {
		return 0
	}
	return float64(active) / float64(idle+active)
}

func (T *Pool) String() string {
	return fmt.Sprintf(
		"%d workers (%d busy, %.2f%% util) / %d queued jobs (%s avg wait)",
		len(T.Workers),
		T.BusyCount(),
		T.AverageUtilization()*100,
		T.QueuedCount(),
		T.AverageWaitTime().String(),
	)
}
