package bresp

import (
	"context"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Context carries everything a handler needs to serve one request: the request itself, the response
// being assembled, and the collaborators of the pipeline.
type Context struct {
	context.Context
	Request  *http.Request
	Response *Response

	w        http.ResponseWriter
	parsers  *Registry
	bg       *Background
	bodyMax  int64
	body     *TypedData
	tokens   map[string]string
	upgraded bool
}

// NewContext inits a context for a request. It is used by [ToStd] and by tests that drive handlers
// directly; w may be nil when the handler never upgrades the connection.
func NewContext(r *http.Request, w http.ResponseWriter, resp *Response, p *Pipeline) *Context {
	return &Context{
		Context:  r.Context(),
		Request:  r,
		Response: resp,
		w:        w,
		parsers:  p.Parsers,
		bg:       p.Background,
		bodyMax:  p.MaxBodyBytes,
	}
}

// Background returns the executor for blocking work.
func (c *Context) Background() *Background { return c.bg }

// PathToken returns the named path token bound by a [PathBinder], or the path value of the route
// pattern.
func (c *Context) PathToken(name string) string {
	if v, ok := c.tokens[name]; ok {
		return v
	}

	return c.Request.PathValue(name)
}

// PathTokens returns the tokens bound by path binders.
func (c *Context) PathTokens() map[string]string {
	return lo.Assign(c.tokens)
}

func (c *Context) bindTokens(tokens map[string]string) {
	c.tokens = lo.Assign(c.tokens, tokens)
}

// Body reads the request body on the background executor. The body is read once; later calls return
// the same data. Bodies larger than the pipeline's limit result in a 413 error.
func (c *Context) Body() (TypedData, error) {
	if c.body != nil {
		return *c.body, nil
	}

	raw, err := Blocking(c, c.bg, func(context.Context) ([]byte, error) {
		if c.Request.Body == nil {
			return nil, nil
		}

		rd := io.Reader(c.Request.Body)
		if c.bodyMax >= 0 {
			rd = io.LimitReader(rd, c.bodyMax+1)
		}

		b, err := io.ReadAll(rd)
		if err != nil {
			return nil, wrapReadErr(err, "read request body")
		}

		if c.bodyMax >= 0 && int64(len(b)) > c.bodyMax {
			return nil, NewError(CodeRequestEntityTooLarge, errors.Newf("request body exceeds %d bytes", c.bodyMax))
		}

		return b, nil
	})
	if err != nil {
		return TypedData{}, err
	}

	data := NewTypedData(c.Request.Header.Get(headerContentType), raw)
	c.body = &data

	return data, nil
}

// Upgrade hands the underlying connection to h, for protocols such as websockets that take over the
// connection. The response counts as committed afterwards.
func (c *Context) Upgrade(h http.Handler) error {
	if c.w == nil {
		return errors.New("bresp: context has no connection to upgrade")
	}

	if err := c.Response.takeOver(); err != nil {
		return err
	}

	c.upgraded = true
	h.ServeHTTP(c.w, c.Request)

	return nil
}

// ByMethod starts dispatching on the request method.
func (c *Context) ByMethod() *ByMethod {
	return &ByMethod{c: c, fns: map[string]func() error{}}
}

// ByMethod dispatches a request to a function by its method. Requests with a method that has no
// function get a 405 response that lists the allowed methods.
type ByMethod struct {
	c     *Context
	fns   map[string]func() error
	order []string
}

// Method registers fn for the named method.
func (m *ByMethod) Method(method string, fn func() error) *ByMethod {
	method = strings.ToUpper(method)
	if _, exists := m.fns[method]; !exists {
		m.order = append(m.order, method)
	}

	m.fns[method] = fn

	return m
}

// Get registers fn for GET requests.
func (m *ByMethod) Get(fn func() error) *ByMethod { return m.Method(http.MethodGet, fn) }

// Post registers fn for POST requests.
func (m *ByMethod) Post(fn func() error) *ByMethod { return m.Method(http.MethodPost, fn) }

// Put registers fn for PUT requests.
func (m *ByMethod) Put(fn func() error) *ByMethod { return m.Method(http.MethodPut, fn) }

// Patch registers fn for PATCH requests.
func (m *ByMethod) Patch(fn func() error) *ByMethod { return m.Method(http.MethodPatch, fn) }

// Delete registers fn for DELETE requests.
func (m *ByMethod) Delete(fn func() error) *ByMethod { return m.Method(http.MethodDelete, fn) }

// Handle calls the function registered for the request method.
func (m *ByMethod) Handle() error {
	if fn, ok := m.fns[m.c.Request.Method]; ok {
		return fn()
	}

	allowed := slices.Clone(m.order)
	slices.Sort(allowed)

	m.c.Response.Headers().Set(headerAllow, strings.Join(allowed, ", "))
	m.c.Response.SetStatus(http.StatusMethodNotAllowed)

	return m.c.Response.SendText(http.StatusText(http.StatusMethodNotAllowed))
}
