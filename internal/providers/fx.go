package providers

import (
	"github.com/smallbiznis/planora/internal/providers/email"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
)
