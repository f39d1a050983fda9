package prom

import (
	"gfx.cafe/open/gotoprom"
	"github.com/prometheus/client_golang/prometheus"
)

type PoolLabels struct {
	Pool string `label:"pool"`
}

func (s *PoolLabels) ToOperation(outcome string) OperationLabels {
	return OperationLabels{
		Pool:    s.Pool,
		Outcome: outcome,
	}
}

type OperationLabels struct {
	Pool    string `label:"pool"`
	Outcome string `label:"outcome"`
}

var Pool struct {
	Workers   func(PoolLabels) prometheus.Gauge   `name:"workers" help:"workers owned by the pool"`
	Busy      func(PoolLabels) prometheus.Gauge   `name:"busy" help:"workers with a job in flight"`
	Queued    func(PoolLabels) prometheus.Gauge   `name:"queued" help:"jobs waiting for a worker"`
	Submitted func(PoolLabels) prometheus.Counter `name:"submitted" help:"jobs submitted"`
	Ignored   func(PoolLabels) prometheus.Counter `name:"ignored_messages" help:"worker messages with a stale or foreign id"`
}

var Operation struct {
	Settled   func(OperationLabels) prometheus.Counter   `name:"settled" help:"jobs settled by outcome"`
	Wait      func(OperationLabels) prometheus.Histogram `name:"wait_ms" buckets:"0.01,0.1,1,5,10,50,100,500,1000,5000,10000,30000" help:"ms a job spent queued"`
	Execution func(OperationLabels) prometheus.Histogram `name:"execution_ms" buckets:"1,5,10,30,75,150,300,500,1000,2000,5000,7500,10000,15000,30000" help:"ms from dispatch to settlement"`
}

func init() {
	gotoprom.MustInit(&Pool, "imgconv_pool", prometheus.Labels{})
	gotoprom.MustInit(&Operation, "imgconv_operation", prometheus.Labels{})
}
