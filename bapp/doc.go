// Package bapp provides a batteries-included application around [bresp] handlers.
//
// # Overview
//
// bapp handles the boilerplate of running an HTTP service: environment parsing, structured logging,
// OpenTelemetry tracing, AWS SDK clients, metrics reporting and graceful shutdown. A complete
// application is created in a single call:
//
//	bapp.NewApp[Env](func(m *bapp.Mux, h *Handlers) {
//	    m.HandleFunc("GET /items", h.ListItems)
//	    m.HandleFunc("GET /items/{id}", h.GetItem, "get-item")
//	},
//	    bapp.WithAWSClient(func(cfg aws.Config) *s3.Client { return s3.NewFromConfig(cfg) }),
//	    bapp.WithFx(fx.Provide(NewHandlers)),
//	).Run()
//
// # Environment Configuration
//
// Define your environment by embedding [BaseEnvironment]:
//
//	type Env struct {
//	    bapp.BaseEnvironment
//	    MainTableName string `env:"MAIN_TABLE_NAME,required"`
//	}
//
// BaseEnvironment provides the following environment variables:
//
//	| Variable                | Required | Default               | Description                                  |
//	|-------------------------|----------|-----------------------|----------------------------------------------|
//	| BW_PORT                 | Yes      | -                     | Port the HTTP server listens on              |
//	| BW_SERVICE_NAME         | Yes      | -                     | Service name for logging and tracing         |
//	| AWS_REGION              | Yes      | -                     | Region the app runs in                       |
//	| BW_PRIMARY_REGION       | Yes      | -                     | Primary deployment region                    |
//	| BW_READINESS_CHECK_PATH | No       | /health               | Health check endpoint path                   |
//	| BW_LOG_LEVEL            | No       | info                  | Log level (debug, info, warn, error)         |
//	| BW_OTEL_EXPORTER        | No       | stdout                | Trace exporter: "stdout" or "xrayudp"        |
//	| BW_TRACE_LOG_GROUPS     | No       | -                     | Log groups added to traces, comma separated  |
//	| BW_TRACE_SAMPLE_RATIO   | No       | 1                     | Share of new traces that are sampled         |
//	| BW_REQUEST_TIMEOUT      | No       | 30s                   | Time a request may take                      |
//	| BW_METRICS_PATH         | No       | /admin/metrics-report | Path of the websocket metrics endpoint       |
//	| BW_METRICS_INTERVAL     | No       | 5s                    | Time between two metrics samples             |
//	| BW_BACKGROUND_WORKERS   | No       | 64                    | Goroutines that may do blocking work at once |
//	| BW_MAX_BODY_BYTES       | No       | 10485760              | Largest request body that is read            |
//	| BW_FILES_DIR            | No       | .                     | Directory files are sent from                |
//	| BW_FILES_BUCKET         | No       | -                     | S3 bucket files are sent from instead        |
//	| BW_SAMPLE_QUEUE_URL     | No       | -                     | SQS queue with samples to relay              |
//	| BW_SAMPLE_SOURCE_URL    | No       | -                     | HTTP endpoint samples are pulled from        |
//	| BW_SAMPLE_SOURCE_TOKEN  | No       | -                     | Secret reference of its bearer token         |
//	| BW_SECRET_CACHE_TTL     | No       | 1h                    | Time a secret value is cached                |
//
// # Runtime
//
// [Runtime] provides access to app-scoped dependencies and should be injected into handler
// constructors via fx:
//
//   - [Runtime.Env] returns the typed environment configuration
//   - [Runtime.Reverse] generates URLs for named routes
//   - [Runtime.Secret] resolves a [SecretRef] such as "db-creds#password" from AWS Secrets Manager
//   - [Runtime.NewRequest] builds traced outbound requests
//   - [Runtime.Metrics] and [Runtime.Broadcaster] give access to metrics
//
// # Context
//
// Use the package-level functions to access request-scoped values:
//
//	func (h *Handlers) GetItem(c *bresp.Context) error {
//	    bapp.Log(c).Info("fetching item")
//	    bapp.Span(c).AddEvent("fetching item")
//	    // ...
//	}
//
// # Metrics
//
// Every request is counted in a [metrics.Registry] that also carries runtime gauges. The registry is
// sampled every BW_METRICS_INTERVAL while clients are connected to the websocket endpoint at
// BW_METRICS_PATH. When BW_SAMPLE_QUEUE_URL is set, samples that an external sampler puts on the
// queue are relayed to the same clients. When BW_SAMPLE_SOURCE_URL is set, a JSON sample is pulled
// from it every interval as well, authenticated with the bearer token BW_SAMPLE_SOURCE_TOKEN points at.
//
// # Files
//
// [bresp.Response.SendFile] reads from BW_FILES_DIR, or from the bucket BW_FILES_BUCKET when set.
//
// # Timeouts
//
// The server timeouts follow BW_REQUEST_TIMEOUT. Each request context expires half a second earlier
// so that a handler running out of time can still answer with 504. Use [RequestDeadline] and
// [RequestRemainingTime] to check the effective deadline.
//
// # Testing
//
// The companion bapptest package builds the same dependency graph on [go.uber.org/fx/fxtest]:
//
//	bapptest.SetBaseEnv(t, 18081)
//	app := bapptest.New[Env](t, routing)
//	app.RequireStart()
//	t.Cleanup(app.RequireStop)
package bapp
