package observability

import (
	"github.com/UniqBrio/UniqBrio-sub017/internal/observability/logger"
	"github.com/UniqBrio/UniqBrio-sub017/internal/observability/metrics"
	"github.com/UniqBrio/UniqBrio-sub017/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module wires the logger plus the trace and metric providers. The
// providers register their own shutdown hooks; the invoke forces them
// to be built even though nothing asks for the tracer directly.
var Module = fx.Module("observability",
	fx.Provide(
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
	),
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
