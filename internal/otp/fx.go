package otp

import (
	"github.com/smallbiznis/ticketflow/internal/otp/repository"
	"github.com/smallbiznis/ticketflow/internal/otp/service"
	"go.uber.org/fx"
)

var Module = fx.Module("otp.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
