package bapp

import (
	"context"
	"net/http"

	"github.com/advdv/bresp/metrics"
	"github.com/carlmjohnson/requests"
	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewHTTPTransport creates the RoundTripper for outbound requests. Each request gets a client span
// named after its method and host, and the trace context is propagated.
func NewHTTPTransport(tp trace.TracerProvider, prop propagation.TextMapPropagator) http.RoundTripper {
	return otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithPropagators(prop),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Host
		}),
	)
}

// TokenSource returns the bearer token for a request.
type TokenSource func(ctx context.Context) (string, error)

// SecretToken returns a TokenSource that resolves ref on every call. The reader caches the secret.
func SecretToken(reader SecretReader, ref SecretRef) TokenSource {
	return func(ctx context.Context) (string, error) {
		return ref.Resolve(ctx, reader)
	}
}

// RemoteSampler pulls metrics samples from an HTTP endpoint that serves a JSON document, such as the
// report of a sidecar or of another instance. Samples are compacted to one line before they are
// returned.
type RemoteSampler struct {
	url   string
	base  *requests.Builder
	token TokenSource
}

// NewRemoteSampler creates a sampler for url. The token may be nil for endpoints without auth.
func NewRemoteSampler(rt http.RoundTripper, url string, token TokenSource) *RemoteSampler {
	return &RemoteSampler{
		url: url,
		base: requests.URL(url).
			Transport(rt).
			Accept("application/json").
			CheckStatus(http.StatusOK),
		token: token,
	}
}

// Sample fetches one sample. It implements the Source of a [metrics.Reporter].
func (s *RemoteSampler) Sample(ctx context.Context) (string, error) {
	rb := s.base.Clone()
	if s.token != nil {
		tok, err := s.token(ctx)
		if err != nil {
			return "", errors.Wrap(err, "resolve sample source token")
		}

		rb.Bearer(tok)
	}

	var body string
	if err := rb.ToString(&body).Fetch(ctx); err != nil {
		return "", errors.Wrapf(err, "pull sample from %s", s.url)
	}

	if !gjson.Valid(body) {
		return "", errors.Newf("sample from %s is not valid JSON", s.url)
	}

	return gjson.Get(body, "@ugly").Raw, nil
}

type remoteSamplerParams struct {
	fx.In

	Env          Environment
	Transport    http.RoundTripper
	SecretReader SecretReader
	Broadcaster  *metrics.Broadcaster
	Logger       *zap.Logger
}

// startRemoteSamplerHook reports samples pulled from BW_SAMPLE_SOURCE_URL, when set, next to the
// samples of the local registry.
func startRemoteSamplerHook(lc fx.Lifecycle, p remoteSamplerParams) {
	url := p.Env.sampleSourceURL()
	if url == "" {
		return
	}

	var token TokenSource
	if ref := p.Env.sampleSourceToken(); !ref.IsZero() {
		token = SecretToken(p.SecretReader, ref)
	}

	sampler := NewRemoteSampler(p.Transport, url, token)
	reporter := &metrics.Reporter{
		Broadcaster: p.Broadcaster,
		Interval:    p.Env.metricsInterval(),
		Source:      sampler.Sample,
		Logs:        p.Logger.Named("remote-sampler").With(zap.String("url", url)),
	}

	runInBackground(lc, reporter.Run)
}
