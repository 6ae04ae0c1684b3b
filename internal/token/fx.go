package token

import (
	"github.com/smallbiznis/ticketflow/internal/token/repository"
	"github.com/smallbiznis/ticketflow/internal/token/service"
	"go.uber.org/fx"
)

var Module = fx.Module("token.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
