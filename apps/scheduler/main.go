package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ticketflow/internal/changefeed"
	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/config"
	"github.com/smallbiznis/ticketflow/internal/invoice"
	"github.com/smallbiznis/ticketflow/internal/lock"
	"github.com/smallbiznis/ticketflow/internal/mailqueue"
	"github.com/smallbiznis/ticketflow/internal/notification"
	"github.com/smallbiznis/ticketflow/internal/observability"
	"github.com/smallbiznis/ticketflow/internal/profile"
	"github.com/smallbiznis/ticketflow/internal/providers"
	"github.com/smallbiznis/ticketflow/internal/reminder"
	"github.com/smallbiznis/ticketflow/internal/subscription"
	"github.com/smallbiznis/ticketflow/internal/token"
	"github.com/smallbiznis/ticketflow/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Supply(observability.RoleScheduler),
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		providers.Module,
		changefeed.Module,
		lock.Module,

		// Domain services required by the scanner
		token.Module,
		notification.Module,
		mailqueue.Module,
		invoice.Module,
		profile.Module,
		subscription.Module,

		reminder.Module,
		// No server module!
		reminder.SchedulerModule,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
