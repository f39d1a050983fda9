package taskpool

import "github.com/google/uuid"

// Request is what the pool posts to a worker for one job.
type Request[P any] struct {
	ID      uuid.UUID
	Payload P
}

// Message is emitted by a worker while it handles a request. Progress
// messages may precede exactly one terminal message carrying Result or Err.
type Message[R any] struct {
	ID uuid.UUID

	Progress *float64
	// Result takes precedence over Err if a worker sets both.
	Result *R
	Err    error
}

func (T Message[R]) Terminal() bool {
	return T.Result != nil || T.Err != nil
}

func ProgressMessage[R any](id uuid.UUID, progress float64) Message[R] {
	return Message[R]{
		ID:       id,
		Progress: &progress,
	}
}

func ResultMessage[R any](id uuid.UUID, result R) Message[R] {
	return Message[R]{
		ID:     id,
		Result: &result,
	}
}

func ErrorMessage[R any](id uuid.UUID, err error) Message[R] {
	return Message[R]{
		ID:  id,
		Err: err,
	}
}

// Worker is an isolated execution unit owned by a Pool.
type Worker[P, R any] interface {
	// Post hands the worker a request. The pool never posts a second request
	// before the terminal message of the first, so Post must not block.
	Post(req Request[P])
	// Messages must be closed once the worker exits after Terminate.
	Messages() <-chan Message[R]
	Terminate()
}

type WorkerFactory[P, R any] interface {
	NewWorker() Worker[P, R]
}

type WorkerFactoryFunc[P, R any] func() Worker[P, R]

func (T WorkerFactoryFunc[P, R]) NewWorker() Worker[P, R] {
	return T()
}
