package metrics

type WorkerState int

const (
	WorkerStateIdle WorkerState = iota
	WorkerStateBusy
	// WorkerStateAbandoned is a busy worker whose job was already settled by
	// a timeout or cancellation. It is freed by the job's late terminal message.
	WorkerStateAbandoned

	WorkerStateCount
)

var workerStateString = [WorkerStateCount]string{
	WorkerStateIdle:      "idle",
	WorkerStateBusy:      "busy",
	WorkerStateAbandoned: "abandoned",
}

func (T WorkerState) String() string {
	if T < 0 || T >= WorkerStateCount {
		return "unknown"
	}
	return workerStateString[T]
}

type JobState int

const (
	JobStateQueued JobState = iota
	JobStateDispatched
	JobStateCompleted
	JobStateFailed

	JobStateCount
)

var jobStateString = [JobStateCount]string{
	JobStateQueued:     "queued",
	JobStateDispatched: "dispatched",
	JobStateCompleted:  "completed",
	JobStateFailed:     "failed",
}

func (T JobState) String() string {
	if T < 0 || T >= JobStateCount {
		return "unknown"
	}
	return jobStateString[T]
}

// Terminal reports whether the job has settled.
func (T JobState) Terminal() bool {
	return T == JobStateCompleted || T == JobStateFailed
}
