package bresp

import (
	"net/http"
)

// ServeMux is an HTTP multiplexer with single-commit responses, error handling, and named routes.
type ServeMux struct {
	pipeline    *Pipeline
	reverser    *Reverser
	mux         *http.ServeMux
	middlewares struct {
		captured bool
		handlers []Middleware
	}
}

// NewServeMux creates a new ServeMux with default settings.
func NewServeMux() *ServeMux {
	return NewServeMuxWith(NewPipeline(), http.NewServeMux(), NewReverser())
}

// NewServeMuxWith creates a ServeMux with custom settings.
func NewServeMuxWith(pipeline *Pipeline, baseMux *http.ServeMux, reverser *Reverser) *ServeMux {
	return &ServeMux{
		pipeline: pipeline,
		reverser: reverser,
		mux:      baseMux,
	}
}

// Pipeline returns the collaborators requests are served with.
func (m *ServeMux) Pipeline() *Pipeline { return m.pipeline }

// Reverse returns the url based on the name and parameter values.
func (m *ServeMux) Reverse(name string, vals ...string) (string, error) {
	return m.reverser.Reverse(name, vals...)
}

// Use allows providing of middleware.
func (m *ServeMux) Use(mw ...Middleware) {
	m.ensureNoUseAfterHandle()
	m.middlewares.handlers = append(m.middlewares.handlers, mw...)
}

// HandleFunc handles the request given the pattern using a function.
func (m *ServeMux) HandleFunc(pattern string, handler HandlerFunc, name ...string) {
	m.Handle(pattern, handler, name...)
}

// HandleStd registers a standard library [http.Handler] for the given pattern. Middleware registered via
// [ServeMux.Use] is applied. The standard handler writes to the connection itself, so the response counts
// as committed once it returns.
func (m *ServeMux) HandleStd(pattern string, handler http.Handler, name ...string) {
	m.Handle(pattern, stdHandler(handler), name...)
}

// Handle handles the request given a handler.
func (m *ServeMux) Handle(pattern string, handler Handler, name ...string) {
	m.handle(pattern, ToStd(
		Wrap(handler, m.middlewares.handlers...),
		m.pipeline,
	), name...)
}

// ServeHTTP makes the server mux implement the http.Handler interface.
func (m *ServeMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mux.ServeHTTP(w, r)
}

func (m *ServeMux) handle(pattern string, handler http.Handler, name ...string) {
	m.middlewares.captured = true

	if len(name) > 0 {
		pattern = m.reverser.Named(name[0], pattern)
	}

	m.mux.Handle(pattern, handler)
}

func (m *ServeMux) ensureNoUseAfterHandle() {
	if m.middlewares.captured {
		panic("bresp: cannot call Use() after calling Handle")
	}
}

func stdHandler(h http.Handler) Handler {
	return HandlerFunc(func(c *Context) error {
		return c.Upgrade(h)
	})
}
