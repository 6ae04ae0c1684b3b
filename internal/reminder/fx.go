package reminder

import (
	"context"

	"github.com/smallbiznis/ticketflow/internal/config"
	"github.com/smallbiznis/ticketflow/internal/lock"
	"go.uber.org/fx"
)

// Module provides the scanner used by the scheduler and the manual trigger.
var Module = fx.Module("reminder.scanner",
	fx.Provide(NewScanner),
	fx.Provide(func(s *Scanner) Sweeper { return s }),
)

var SchedulerModule = fx.Module("reminder.scheduler",
	fx.Provide(provideLock),
	fx.Provide(NewScheduler),
	fx.Invoke(startScheduler),
)

type lockParam struct {
	fx.In

	Locker *lock.Locker `optional:"true"`
}

func provideLock(p lockParam) Lock {
	if !p.Locker.Enabled() {
		return nil
	}
	return p.Locker
}

func startScheduler(lc fx.Lifecycle, cfg config.Config, sched *Scheduler) {
	if !cfg.Scheduler.Enabled {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go sched.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
