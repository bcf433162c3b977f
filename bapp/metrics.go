package bapp

import (
	"context"

	"github.com/advdv/bresp/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewBroadcaster creates the broadcaster that metrics samples are published on.
func NewBroadcaster(logs *zap.Logger) *metrics.Broadcaster {
	return metrics.NewBroadcaster(logs.Named("metrics"))
}

// NewRegistry creates the metrics registry with the runtime gauges registered.
func NewRegistry() *metrics.Registry {
	reg := metrics.NewRegistry()
	metrics.RegisterRuntimeGauges(reg)
	return reg
}

// startReporterHook samples the registry every BW_METRICS_INTERVAL while the app runs.
func startReporterHook(lc fx.Lifecycle, env Environment, b *metrics.Broadcaster, reg *metrics.Registry, logs *zap.Logger) {
	reporter := &metrics.Reporter{
		Broadcaster: b,
		Interval:    env.metricsInterval(),
		Source:      func(context.Context) (string, error) { return reg.Sample() },
		Logs:        logs.Named("reporter"),
	}

	runInBackground(lc, reporter.Run)
}
