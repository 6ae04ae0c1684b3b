package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ticketflow/internal/changefeed"
	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/config"
	"github.com/smallbiznis/ticketflow/internal/invoice"
	"github.com/smallbiznis/ticketflow/internal/lifecycle"
	"github.com/smallbiznis/ticketflow/internal/mailqueue"
	"github.com/smallbiznis/ticketflow/internal/notification"
	"github.com/smallbiznis/ticketflow/internal/observability"
	"github.com/smallbiznis/ticketflow/internal/payment"
	"github.com/smallbiznis/ticketflow/internal/profile"
	"github.com/smallbiznis/ticketflow/internal/providers"
	"github.com/smallbiznis/ticketflow/internal/subscription"
	"github.com/smallbiznis/ticketflow/internal/ticket"
	"github.com/smallbiznis/ticketflow/internal/token"
	"github.com/smallbiznis/ticketflow/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Supply(observability.RoleWorker),
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		providers.Module,
		changefeed.Module,

		// Domain services required by the handlers
		token.Module,
		notification.Module,
		mailqueue.Module,
		invoice.Module,
		ticket.Module,
		payment.Module,
		profile.Module,
		subscription.Module,
		lifecycle.Module,

		changefeed.WorkerModule,
		ticket.ConsumerModule,
		mailqueue.ConsumerModule,
		lifecycle.ConsumerModule,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
