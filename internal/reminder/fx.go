package reminder

import (
	"context"

	"github.com/gymdesk/gymdesk/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("reminder",
	fx.Provide(config.NewReminderTemplatesHolder),
	fx.Provide(New),
	fx.Invoke(register),
)

func register(lc fx.Lifecycle, cfg config.Config, sched *Scheduler) {
	if !cfg.Reminder.Enabled {
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
