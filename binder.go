package bresp

import (
	"github.com/advdv/bresp/internal/httppattern"
	"github.com/cockroachdb/errors"
)

// PathBinder decides whether a request path belongs to a handler and extracts the path tokens.
type PathBinder interface {
	Bind(path string) (tokens map[string]string, ok bool)
}

type patternBinder struct{ pat *httppattern.Pattern }

func (b patternBinder) Bind(path string) (map[string]string, bool) {
	return b.pat.Match(path)
}

// NewPathBinder creates a binder from a path pattern in the syntax of [net/http.ServeMux], for example
// "/admin/{name}/{$}". Patterns with a method or host are rejected.
func NewPathBinder(pattern string) (PathBinder, error) {
	pat, err := httppattern.ParsePattern(pattern)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse pattern")
	}

	if pat.Method != "" || pat.Host != "" {
		return nil, errors.Newf("path binder pattern %q may only contain a path", pattern)
	}

	return patternBinder{pat}, nil
}

// MustPathBinder is like [NewPathBinder] but panics on error.
func MustPathBinder(pattern string) PathBinder {
	b, err := NewPathBinder(pattern)
	if err != nil {
		panic("bresp: " + err.Error())
	}

	return b
}

// Path returns middleware that lets h handle requests whose path binds, with the bound tokens available
// through [Context.PathToken]. Other requests fall through to the next handler.
func Path(binder PathBinder, h Handler) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(c *Context) error {
			tokens, ok := binder.Bind(c.Request.URL.Path)
			if !ok {
				return next.Handle(c)
			}

			c.bindTokens(tokens)

			return h.Handle(c)
		})
	}
}
