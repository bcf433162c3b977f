package bresp

import (
	"slices"
	"sync"

	"github.com/advdv/bresp/internal/httppattern"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Reverser maps route names to their patterns. Named routes can be built back into paths and bound
// against request paths, so a [Path] middleware and a link to it share one pattern. It is safe for
// concurrent use.
type Reverser struct {
	mu     sync.RWMutex
	routes map[string]*httppattern.Pattern
}

// NewReverser inits the reverser.
func NewReverser() *Reverser {
	return &Reverser{routes: map[string]*httppattern.Pattern{}}
}

func (r *Reverser) lookup(name string) (*httppattern.Pattern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pat, ok := r.routes[name]
	if !ok {
		return nil, errors.Newf("no pattern named: %q, got: %v", name, r.names())
	}

	return pat, nil
}

func (r *Reverser) names() []string {
	names := lo.Keys(r.routes)
	slices.Sort(names)

	return names
}

// Names lists the route names in sorted order.
func (r *Reverser) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.names()
}

// Reverse builds the path of the named route, filling its wildcards with vals in order.
func (r *Reverser) Reverse(name string, vals ...string) (string, error) {
	pat, err := r.lookup(name)
	if err != nil {
		return "", err
	}

	res, err := httppattern.Build(pat, vals...)
	if err != nil {
		return "", errors.Wrapf(err, "failed to build %q", name)
	}

	return res, nil
}

// Binder returns a [PathBinder] for the path of the named route. Method and host of the pattern are
// not checked by the binder.
func (r *Reverser) Binder(name string) (PathBinder, error) {
	pat, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	return patternBinder{pat}, nil
}

// Named is like [Reverser.NamedPattern] but panics when the route cannot be named.
func (r *Reverser) Named(name, str string) string {
	str, err := r.NamedPattern(name, str)
	if err != nil {
		panic("bresp: " + err.Error())
	}

	return str
}

// NamedPattern parses str as a route pattern and registers it under name. It returns str unchanged
// so it can be passed on to a mux.
func (r *Reverser) NamedPattern(name, str string) (string, error) {
	pat, err := httppattern.ParsePattern(str)
	if err != nil {
		return str, errors.Wrap(err, "failed to parse pattern")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.routes[name]; exists {
		return str, errors.Newf("pattern with name %q already exists", name)
	}

	r.routes[name] = pat

	return str, nil
}
