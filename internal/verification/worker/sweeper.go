package worker

import (
	"context"
	"time"

	billdomain "github.com/rupeeback/verify/internal/bill/domain"
	"github.com/rupeeback/verify/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sweepInterval = time.Minute
	sweepGrace    = 2 * time.Minute
	sweepBatch    = 100

	// processingGrace must exceed the worker job timeout, or the sweeper
	// would steal bills from runs that are still in flight.
	processingGrace = 10 * time.Minute
)

type SweeperParams struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Bills billdomain.Repository
	Pool  *Pool
}

// Sweeper re-enqueues pending bills that fell off the in-memory queue,
// for example after a crash or a full-queue drop.
type Sweeper struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	bills billdomain.Repository
	pool  *Pool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(p SweeperParams) *Sweeper {
	return &Sweeper{
		db:    p.DB,
		log:   p.Log.Named("verification.sweeper"),
		clock: p.Clock,
		bills: p.Bills,
		pool:  p.Pool,
	}
}

func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
	s.log.Info("sweeper started", zap.Duration("interval", sweepInterval))
}

func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := s.clock.Now()

	// Runs that claimed a bill and died leave it in processing; put
	// those back first so the listing below picks them up.
	released, err := s.bills.ReleaseStaleProcessing(ctx, s.db, now.Add(-processingGrace), now)
	if err != nil {
		s.log.Error("stale processing release failed", zap.Error(err))
	} else if released > 0 {
		s.log.Warn("released bills stuck in processing", zap.Int64("released", released))
	}

	olderThan := now.Add(-sweepGrace)
	bills, err := s.bills.ListUnprocessed(ctx, s.db, olderThan, sweepBatch)
	if err != nil {
		s.log.Error("sweep query failed", zap.Error(err))
		return
	}
	if len(bills) == 0 {
		return
	}

	requeued := 0
	for _, b := range bills {
		if s.pool.Enqueue(b.ID) {
			requeued++
		}
	}
	s.log.Info("requeued stale pending bills",
		zap.Int("found", len(bills)),
		zap.Int("requeued", requeued))
}
