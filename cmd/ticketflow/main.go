package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ticketflow/internal/changefeed"
	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/config"
	"github.com/smallbiznis/ticketflow/internal/invoice"
	"github.com/smallbiznis/ticketflow/internal/lifecycle"
	"github.com/smallbiznis/ticketflow/internal/lock"
	"github.com/smallbiznis/ticketflow/internal/mailqueue"
	"github.com/smallbiznis/ticketflow/internal/migration"
	"github.com/smallbiznis/ticketflow/internal/notification"
	"github.com/smallbiznis/ticketflow/internal/observability"
	"github.com/smallbiznis/ticketflow/internal/otp"
	"github.com/smallbiznis/ticketflow/internal/payment"
	"github.com/smallbiznis/ticketflow/internal/profile"
	"github.com/smallbiznis/ticketflow/internal/providers"
	"github.com/smallbiznis/ticketflow/internal/reminder"
	"github.com/smallbiznis/ticketflow/internal/server"
	"github.com/smallbiznis/ticketflow/internal/subscription"
	"github.com/smallbiznis/ticketflow/internal/ticket"
	"github.com/smallbiznis/ticketflow/internal/token"
	"github.com/smallbiznis/ticketflow/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		providers.Module,
		changefeed.Module,
		lock.Module,

		// Functional Domains
		token.Module,
		notification.Module,
		mailqueue.Module,
		invoice.Module,
		ticket.Module,
		payment.Module,
		profile.Module,
		subscription.Module,
		lifecycle.Module,
		reminder.Module,
		otp.Module,

		// Workers
		changefeed.WorkerModule,
		ticket.ConsumerModule,
		mailqueue.ConsumerModule,
		lifecycle.ConsumerModule,
		reminder.SchedulerModule,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
