package bapp

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/advdv/bresp"
	"github.com/advdv/bresp/metrics"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ServerConfig holds optional configuration for the HTTP server.
type ServerConfig struct {
	HealthHandler bresp.HandlerFunc
}

// ServerParams holds the dependencies for creating an HTTP server.
type ServerParams struct {
	fx.In

	Env         Environment
	Mux         *Mux
	Logger      *zap.Logger
	TracerProv  trace.TracerProvider
	Propagator  propagation.TextMapPropagator
	Broadcaster *metrics.Broadcaster
	Registry    *metrics.Registry
}

// NewServer creates an HTTP server with all middleware and routing configured.
func NewServer(params ServerParams, cfg ServerConfig) *http.Server {
	tc := TimeoutConfig{RequestTimeout: params.Env.requestTimeout()}

	params.Mux.Use(withRequestDep(&requestDep{logger: params.Logger}))
	params.Mux.Use(metrics.Requests(params.Registry))
	params.Mux.Use(withSpanOutcome)
	params.Mux.Use(WithRequestDeadline(tc))

	healthPath := params.Env.readinessCheckPath()
	healthHandler := cfg.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	params.Mux.HandleFunc(healthPath, healthHandler)

	// samples are streamed for as long as the client stays, so the endpoint is not traced
	metricsPath := params.Env.metricsPath()
	params.Mux.Handle(metricsPath, metrics.NewEndpoint(params.Broadcaster,
		metrics.WithLogger(params.Logger.Named("metrics"))), "metrics-report")

	handler := withTracing(params.TracerProv, params.Propagator, params.Env.serviceName(),
		healthPath, metricsPath)(params.Mux)

	readHeaderTimeout, readTimeout, writeTimeout, idleTimeout := tc.ServerTimeouts()

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", params.Env.port()),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          zap.NewStdLog(params.Logger.Named("http")),
	}
}

// startServerHook registers lifecycle hooks for the HTTP server. The listener is opened on start so
// that a port in use fails the start of the app.
func startServerHook(lc fx.Lifecycle, server *http.Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", server.Addr)
			if err != nil {
				return errors.Wrapf(err, "listen on %s", server.Addr)
			}

			logger.Info("starting server", zap.String("addr", server.Addr))
			go func() {
				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping server")
			return server.Shutdown(ctx)
		},
	})
}

func defaultHealthHandler(c *bresp.Context) error {
	return c.Response.SendText("ok")
}
