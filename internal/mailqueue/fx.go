package mailqueue

import (
	"context"

	"github.com/smallbiznis/ticketflow/internal/changefeed"
	maildomain "github.com/smallbiznis/ticketflow/internal/mailqueue/domain"
	"github.com/smallbiznis/ticketflow/internal/mailqueue/repository"
	"github.com/smallbiznis/ticketflow/internal/mailqueue/service"
	"go.uber.org/fx"
)

var Module = fx.Module("mailqueue.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

// ConsumerModule registers the delivery handler on the mail collection.
var ConsumerModule = fx.Module("mailqueue.consumer",
	fx.Provide(changefeed.AsHandler(NewHandler)),
)

func NewHandler(svc maildomain.Service) changefeed.Handler {
	return changefeed.Handler{
		Name:       "mail.deliver",
		Collection: changefeed.CollectionMail,
		Handle: func(ctx context.Context, evt changefeed.ChangeEvent) error {
			return svc.HandleCreated(ctx, evt)
		},
	}
}
