package profile

import (
	"github.com/smallbiznis/ticketflow/internal/profile/identity"
	"github.com/smallbiznis/ticketflow/internal/profile/repository"
	"github.com/smallbiznis/ticketflow/internal/profile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("profile.service",
	fx.Provide(repository.Provide),
	fx.Provide(identity.NewProvider),
	fx.Provide(service.NewService),
)
