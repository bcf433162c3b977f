package bapp

import (
	"context"
	"net/http"

	"github.com/advdv/bresp/metrics"
	"github.com/carlmjohnson/requests"
	"github.com/cockroachdb/errors"
)

// Runtime provides access to app-scoped dependencies.
// Inject this into handler constructors via fx instead of pulling from context.
//
//	type Handlers struct {
//	    rt *bapp.Runtime[Env]
//	}
//
//	func (h *Handlers) GetItem(c *bresp.Context) error {
//	    url, _ := h.rt.Reverse("get-item", c.PathToken("id"))
//	    h.rt.Metrics().Counter("items.read").Inc()
//	    // ...
//	}
type Runtime[E Environment] struct {
	env          E
	mux          *Mux
	secretReader SecretReader
	transport    http.RoundTripper
	broadcaster  *metrics.Broadcaster
	registry     *metrics.Registry
}

// RuntimeParams holds optional dependencies for Runtime.
type RuntimeParams struct {
	SecretReader SecretReader
	Transport    http.RoundTripper
	Broadcaster  *metrics.Broadcaster
	Registry     *metrics.Registry
}

// NewRuntime creates a new Runtime with the given dependencies.
func NewRuntime[E Environment](env E, mux *Mux, params RuntimeParams) *Runtime[E] {
	return &Runtime[E]{
		env:          env,
		mux:          mux,
		secretReader: params.SecretReader,
		transport:    params.Transport,
		broadcaster:  params.Broadcaster,
		registry:     params.Registry,
	}
}

// Env returns the environment configuration.
func (r *Runtime[E]) Env() E {
	return r.env
}

// Reverse returns the URL for a named route with the given parameters.
func (r *Runtime[E]) Reverse(name string, params ...string) (string, error) {
	return r.mux.Reverse(name, params...)
}

// Secret reads the secret that ref points at, in the text form of [SecretRef]: "db-creds" for the
// whole secret or "db-creds#database.password" for a value inside a JSON secret. Secrets are cached
// but looked up per call so rotation needs no redeployment.
func (r *Runtime[E]) Secret(ctx context.Context, ref string) (string, error) {
	if r.secretReader == nil {
		return "", errors.New("bapp: secret reader not configured")
	}

	sr, err := ParseSecretRef(ref)
	if err != nil {
		return "", err
	}

	return sr.Resolve(ctx, r.secretReader)
}

// NewRequest returns a fresh [requests.Builder] whose requests are traced.
func (r *Runtime[E]) NewRequest() *requests.Builder {
	t := r.transport
	if t == nil {
		t = http.DefaultTransport
	}

	return requests.New().Transport(t)
}

// Broadcaster returns the broadcaster metrics samples are published on. Handlers may publish samples
// of their own.
func (r *Runtime[E]) Broadcaster() *metrics.Broadcaster {
	return r.broadcaster
}

// Metrics returns the registry that is sampled every BW_METRICS_INTERVAL.
func (r *Runtime[E]) Metrics() *metrics.Registry {
	return r.registry
}
