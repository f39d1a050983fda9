package taskpool

import "errors"

var (
	ErrPoolClosed = errors.New("task pool is closed")
	ErrJobTimeout = errors.New("job timed out waiting for its worker")
	ErrNotSettled = errors.New("job has not settled yet")
)
