package invitation

import (
	"github.com/smallbiznis/planora/internal/invitation/repository"
	"github.com/smallbiznis/planora/internal/invitation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invitation.service",
	fx.Provide(repository.NewLedger),
	fx.Provide(service.NewService),
)
