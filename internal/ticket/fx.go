package ticket

import (
	"github.com/smallbiznis/ticketflow/internal/changefeed"
	"github.com/smallbiznis/ticketflow/internal/ticket/repository"
	"github.com/smallbiznis/ticketflow/internal/ticket/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ticket.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

var ConsumerModule = fx.Module("ticket.consumer",
	fx.Provide(service.NewHandler),
	fx.Provide(changefeed.AsHandler(func(h *service.Handler) changefeed.Handler {
		return h.Registration()
	})),
)
