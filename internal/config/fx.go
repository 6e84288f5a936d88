package config

import (
	"github.com/UniqBrio/UniqBrio-sub017/internal/observability/logger"
	"github.com/UniqBrio/UniqBrio-sub017/internal/observability/metrics"
	"github.com/UniqBrio/UniqBrio-sub017/internal/observability/tracing"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewLoggerConfig,
		NewTracingConfig,
		NewMetricsConfig,
	),
)

const serviceVersion = "dev"

func NewLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: cfg.AppName,
	}
}

func NewTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.TracingEnabled,
		ServiceName:      cfg.AppName,
		ServiceVersion:   serviceVersion,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OTELExporterEndpoint,
		ExporterProtocol: cfg.OTELExporterProtocol,
		SamplingRatio:    cfg.TraceSamplingRatio,
	}
}

func NewMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.MetricsEnabled,
		ServiceName:      cfg.AppName,
		ServiceVersion:   serviceVersion,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OTELExporterEndpoint,
		ExporterProtocol: cfg.OTELExporterProtocol,
	}
}
