package observability

import (
	"github.com/smallbiznis/planora/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	metrics.Module,
)
