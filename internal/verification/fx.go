package verification

import (
	"context"
	"time"

	"github.com/rupeeback/verify/internal/config"
	"github.com/rupeeback/verify/internal/verification/domain"
	"github.com/rupeeback/verify/internal/verification/service"
	"github.com/rupeeback/verify/internal/verification/worker"
	"go.uber.org/fx"
)

var Module = fx.Module("verification",
	fx.Provide(service.New),
	fx.Provide(func(p worker.Params, cfg config.Config) *worker.Pool {
		return worker.NewPool(p, cfg.WorkerCount, cfg.QueueSize,
			time.Duration(cfg.JobTimeoutSeconds)*time.Second)
	}),
	fx.Provide(func(pool *worker.Pool) domain.Queue { return pool }),
	fx.Provide(worker.NewSweeper),
	fx.Invoke(func(lc fx.Lifecycle, pool *worker.Pool, sweeper *worker.Sweeper) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				pool.Start()
				sweeper.Start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				sweeper.Stop()
				pool.Stop()
				return nil
			},
		})
	}),
)
