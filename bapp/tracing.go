package bapp

import (
	"context"
	"net/http"
	"time"

	"github.com/advdv/bresp"
	"github.com/aws-observability/aws-otel-go/exporters/xrayudp"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.opentelemetry.io/contrib/detectors/aws/lambda"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

const tracingInitTimeout = 5 * time.Second

// Values of BW_OTEL_EXPORTER.
const (
	exporterStdout  = "stdout"
	exporterXRayUDP = "xrayudp"
)

// tracingSetup is everything that follows from the choice of exporter.
type tracingSetup struct {
	exporter   func(ctx context.Context) (sdktrace.SpanExporter, error)
	resource   func(ctx context.Context, env Environment) (*resource.Resource, error)
	propagator propagation.TextMapPropagator
	ids        sdktrace.IDGenerator
}

func tracingFor(exporter string) (tracingSetup, error) {
	switch exporter {
	case exporterStdout, "":
		return tracingSetup{
			exporter: func(context.Context) (sdktrace.SpanExporter, error) {
				return stdouttrace.New(stdouttrace.WithPrettyPrint())
			},
			resource: serviceResource,
			propagator: propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{},
				propagation.Baggage{},
			),
		}, nil
	case exporterXRayUDP:
		return tracingSetup{
			exporter: func(ctx context.Context) (sdktrace.SpanExporter, error) {
				return xrayudp.NewSpanExporter(ctx)
			},
			resource:   lambdaResource,
			propagator: xray.Propagator{},
			ids:        xray.NewIDGenerator(),
		}, nil
	default:
		return tracingSetup{}, errors.Newf("unsupported BW_OTEL_EXPORTER: %q (supported: stdout, xrayudp)", exporter)
	}
}

// NewTracerProvider creates the TracerProvider for the exporter in BW_OTEL_EXPORTER, sampling
// BW_TRACE_SAMPLE_RATIO of the traces that do not have a sampled parent. It is shut down with the app.
func NewTracerProvider(lc fx.Lifecycle, env Environment) (trace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), tracingInitTimeout)
	defer cancel()

	setup, err := tracingFor(env.otelExporter())
	if err != nil {
		return nil, err
	}

	exporter, err := setup.exporter(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "create span exporter")
	}

	res, err := setup.resource(ctx, env)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(env.traceSampleRatio()))),
	}
	if setup.ids != nil {
		opts = append(opts, sdktrace.WithIDGenerator(setup.ids))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	lc.Append(fx.StopHook(tp.Shutdown))

	return tp, nil
}

// NewPropagator returns the propagator that matches the exporter: X-Ray headers for xrayudp, W3C
// trace context and baggage otherwise.
func NewPropagator(env Environment) propagation.TextMapPropagator {
	setup, err := tracingFor(env.otelExporter())
	if err != nil {
		// NewTracerProvider fails the app for the same exporter
		return propagation.TraceContext{}
	}

	return setup.propagator
}

func serviceResource(_ context.Context, env Environment) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(env.serviceName()),
		semconv.CloudProviderAWS,
		semconv.CloudRegion(env.awsRegion()),
	), nil
}

// lambdaResource describes the function the app runs in, with the service name and the log groups
// that X-Ray correlates the traces with.
func lambdaResource(ctx context.Context, env Environment) (*resource.Resource, error) {
	detected, err := lambda.NewResourceDetector().Detect(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "detect lambda resource")
	}

	attrs := append([]attribute.KeyValue{semconv.ServiceName(env.serviceName())},
		logGroupAttrs(env.traceLogGroups())...)

	res, err := resource.Merge(detected, resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, errors.Wrap(err, "merge lambda resource")
	}

	return res, nil
}

// logGroupAttrs returns the aws.log.group.names attribute for the non-empty groups, if any.
func logGroupAttrs(groups []string) []attribute.KeyValue {
	groups = lo.Compact(groups)
	if len(groups) == 0 {
		return nil
	}

	return []attribute.KeyValue{semconv.AWSLogGroupNames(groups...)}
}

// withTracing starts a server span for every request except those to excludePaths. The metrics
// stream would otherwise hold a span open for as long as a client stays connected.
func withTracing(tp trace.TracerProvider, prop propagation.TextMapPropagator, serviceName string, excludePaths ...string) func(http.Handler) http.Handler {
	excluded := lo.SliceToMap(excludePaths, func(p string) (string, struct{}) { return p, struct{}{} })

	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithPropagators(prop),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
			otelhttp.WithFilter(func(r *http.Request) bool {
				_, skip := excluded[r.URL.Path]
				return !skip
			}),
		)
	}
}

// withSpanOutcome records on the request span how the handler ended: whether it committed a response
// and the code of the error it returned, if it has one. Errors without a code and 5xx codes mark the span as failed.
func withSpanOutcome(next bresp.Handler) bresp.Handler {
	return bresp.HandlerFunc(func(c *bresp.Context) error {
		err := next.Handle(c)

		span := trace.SpanFromContext(c)
		if !span.IsRecording() {
			return err
		}

		span.SetAttributes(attribute.Bool("bresp.committed", c.Response.Committed()))
		if err == nil {
			return nil
		}

		code := bresp.CodeOf(err)
		if code != bresp.CodeUnknown {
			span.SetAttributes(attribute.Int("bresp.error_code", int(code)))
		}
		span.RecordError(err)

		if code == bresp.CodeUnknown || code >= bresp.CodeInternalServerError {
			span.SetStatus(codes.Error, err.Error())
		}

		return err
	})
}
