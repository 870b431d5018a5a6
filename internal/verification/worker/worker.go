// Package worker runs the verification pipeline off a bounded queue.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	obsmetrics "github.com/rupeeback/verify/internal/observability/metrics"
	"github.com/rupeeback/verify/internal/verification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Service domain.Service
	Metrics *obsmetrics.PipelineMetrics `optional:"true"`
}

// Pool fans bill IDs out to a fixed set of workers. The queue is
// bounded; a full queue drops the enqueue and leaves the bill pending.
type Pool struct {
	log     *zap.Logger
	service domain.Service
	metrics *obsmetrics.PipelineMetrics

	jobs       chan snowflake.ID
	workers    int
	jobTimeout time.Duration

	closed atomic.Bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(p Params, workers, queueSize int, jobTimeout time.Duration) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if jobTimeout <= 0 {
		jobTimeout = time.Minute
	}
	return &Pool{
		log:        p.Log.Named("verification.worker"),
		service:    p.Service,
		metrics:    p.Metrics,
		jobs:       make(chan snowflake.ID, queueSize),
		workers:    workers,
		jobTimeout: jobTimeout,
	}
}

// Enqueue hands a bill to the pool. Returns false when the pool is
// stopped or the queue is full.
func (p *Pool) Enqueue(billID snowflake.ID) bool {
	if p.closed.Load() {
		return false
	}
	select {
	case p.jobs <- billID:
		p.metrics.SetQueueDepth(len(p.jobs))
		return true
	default:
		p.metrics.QueueDropped()
		p.log.Warn("verification queue full, dropping job",
			zap.Int64("bill_id", int64(billID)))
		return false
	}
}

func (p *Pool) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.log.Info("verification workers started", zap.Int("workers", p.workers))
}

// Stop drains nothing: queued jobs that were not picked up stay pending
// in the database and are claimable by the next instance.
func (p *Pool) Stop() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	close(p.jobs)
	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
	p.log.Info("verification workers stopped")
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.log.With(zap.Int("worker", id))

	for billID := range p.jobs {
		p.metrics.SetQueueDepth(len(p.jobs))
		// Bound every run so a hung extraction or DB call never pins
		// the worker; the sweeper retries whatever the deadline killed.
		jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
		err := p.service.ProcessBill(jobCtx, billID)
		cancel()
		if err != nil {
			log.Error("pipeline run failed",
				zap.Int64("bill_id", int64(billID)),
				zap.Error(err))
		}
	}
}
