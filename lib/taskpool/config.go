package taskpool

import (
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultSize is used when the host does not report its parallelism.
const DefaultSize = 4

const tracerName = "gfx.cafe/gfx/imgconv/lib/taskpool"

type Config struct {
	// Name labels logs, metrics and spans of the pool.
	Name string

	// Size is the number of workers, created up front. Zero uses the number of CPUs.
	Size int

	// JobTimeout rejects a dispatched job that has not settled in time. The
	// worker stays busy until the job's late terminal message arrives.
	JobTimeout time.Duration

	Logger *zap.Logger
	Tracer trace.Tracer
}

func (T Config) withDefaults() Config {
	if T.Name == "" {
		T.Name = "default"
	}
	if T.Size <= 0 {
		T.Size = runtime.NumCPU()
		if T.Size <= 0 {
			T.Size = DefaultSize
		}
	}
	if T.Logger == nil {
		T.Logger = zap.NewNop()
	}
	if T.Tracer == nil {
		T.Tracer = otel.Tracer(tracerName)
	}
	return T
}
