package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

var Module = fx.Module("observability.metrics",
	fx.Provide(NewRegistry),
	fx.Provide(NewHTTPMetrics),
	fx.Provide(NewInvitationMetrics),
)

// NewRegistry builds the process-wide Prometheus registry.
func NewRegistry() (*prometheus.Registry, prometheus.Registerer) {
	reg := prometheus.NewRegistry()
	return reg, reg
}
