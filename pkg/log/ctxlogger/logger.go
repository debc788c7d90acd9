package ctxlogger

import (
	"context"
	"sync/atomic"

	"github.com/smallbiznis/planora/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

var serviceName atomic.Pointer[string]

// SetServiceName configures the service name added to every log entry.
func SetServiceName(name string) {
	serviceName.Store(&name)
}

// FromContext returns a logger enriched with correlation metadata from context.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext enriches the provided logger using metadata in the context.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil {
		return base
	}

	fields := make([]zap.Field, 0, 2)
	if cid := correlation.ExtractCorrelationID(ctx); cid != "" {
		fields = append(fields, zap.String("correlation_id", cid))
	}
	if namePtr := serviceName.Load(); namePtr != nil && *namePtr != "" {
		fields = append(fields, zap.String("service", *namePtr))
	}

	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
