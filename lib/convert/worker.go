package convert

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"gfx.cafe/gfx/imgconv/lib/taskpool"
)

// Payload is one conversion request. Data is owned by the worker once submitted.
type Payload struct {
	Data    []byte
	Format  Format
	Quality int
}

type Result struct {
	Data   []byte
	Format Format
}

func (T Result) MIME() string {
	return T.Format.MIME()
}

// Progress values reported by a Worker.
const (
	ProgressDecoding = 50
	ProgressDone     = 100
)

// Worker converts one image at a time on its own goroutine.
type Worker struct {
	codec  *Codec
	logger *zap.Logger

	inbox     chan taskpool.Request[Payload]
	messages  chan taskpool.Message[Result]
	closed    chan struct{}
	terminate sync.Once
}

func NewWorker(codec *Codec, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Worker{
		codec:  codec,
		logger: logger,

		inbox:    make(chan taskpool.Request[Payload], 1),
		messages: make(chan taskpool.Message[Result]),
		closed:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (T *Worker) Post(req taskpool.Request[Payload]) {
	select {
	case T.inbox <- req:
	case <-T.closed:
	}
}

func (T *Worker) Messages() <-chan taskpool.Message[Result] {
	return T.messages
}

func (T *Worker) Terminate() {
	T.terminate.Do(func() {
		close(T.closed)
	})
}

func (T *Worker) run() {
	defer close(T.messages)

	for {
		select {
		case <-T.closed:
			return
		case req := <-T.inbox:
			T.handle(req)
		}
	}
}

func (T *Worker) emit(msg taskpool.Message[Result]) bool {
	select {
	case T.messages <- msg:
		return true
	case <-T.closed:
		return false
	}
}

func (T *Worker) handle(req taskpool.Request[Payload]) {
	T.codec.Load()

	if !T.emit(taskpool.ProgressMessage[Result](req.ID, ProgressDecoding)) {
		return
	}

	data, err := T.convert(req.Payload)
	if err != nil {
		T.logger.Debug("conversion failed", zap.Stringer("job", req.ID), zap.Error(err))
		T.emit(taskpool.ErrorMessage[Result](req.ID, fmt.Errorf("%w: %w", ErrConversion, err)))
		return
	}

	msg := taskpool.ResultMessage(req.ID, Result{
		Data:   data,
		Format: req.Payload.Format,
	})
	done := float64(ProgressDone)
	msg.Progress = &done
	T.emit(msg)
}

// convert turns a codec panic on malformed input into an error so the job
// still gets its terminal message.
func (T *Worker) convert(payload Payload) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("codec panic: %v", r)
		}
	}()

	return T.codec.Convert(payload.Data, payload.Format, payload.Quality)
}

// Factory creates Workers, each with its own Codec.
type Factory struct {
	Logger *zap.Logger
}

func (T *Factory) NewWorker() taskpool.Worker[Payload, Result] {
	logger := T.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewWorker(NewCodec(logger), logger)
}

type Pool = taskpool.Pool[Payload, Result]

// NewPool starts a pool of conversion workers.
func NewPool(config taskpool.Config) *Pool {
	return taskpool.NewPool[Payload, Result](&Factory{Logger: config.Logger}, config)
}
