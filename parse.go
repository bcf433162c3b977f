package bresp

import (
	"reflect"

	"github.com/cockroachdb/errors"
)

var anyType = reflect.TypeFor[any]()

// Descriptor describes how a request body should be parsed and what it should be parsed into. A
// descriptor's dynamic type selects the parser, its options configure it.
type Descriptor interface {
	Target() reflect.Type
}

// Parser deserializes request bodies of one content type, for one kind of descriptor, into one type of
// value. A parser whose ParsedType is the empty interface produces whatever the descriptor targets.
type Parser interface {
	ContentType() string
	ParseType() reflect.Type
	ParsedType() reflect.Type
	Parse(c *Context, body TypedData, d Descriptor) (any, error)
}

type funcParser[D Descriptor, T any] struct {
	contentType string
	parse       func(*Context, TypedData, D) (T, error)
}

// NewParser builds a parser for contentType from a function. The descriptor type D and the produced
// type T are taken from the function's signature.
func NewParser[D Descriptor, T any](contentType string, fn func(c *Context, body TypedData, d D) (T, error)) Parser {
	return funcParser[D, T]{contentType: ParseMediaType(contentType).Type, parse: fn}
}

func (p funcParser[D, T]) ContentType() string      { return p.contentType }
func (p funcParser[D, T]) ParseType() reflect.Type  { return reflect.TypeFor[D]() }
func (p funcParser[D, T]) ParsedType() reflect.Type { return reflect.TypeFor[T]() }

func (p funcParser[D, T]) Parse(c *Context, body TypedData, d Descriptor) (any, error) {
	typed, ok := d.(D)
	if !ok {
		return nil, errors.AssertionFailedf("descriptor %T is not a %v", d, p.ParseType())
	}

	return p.parse(c, body, typed)
}

// Registry holds the parsers that request bodies are dispatched to. It is immutable and safe to share
// between requests.
type Registry struct {
	parsers []Parser
}

// NewRegistry inits a registry. Parsers are tried in the order given.
func NewRegistry(parsers ...Parser) *Registry {
	return &Registry{parsers: append([]Parser(nil), parsers...)}
}

// With returns a new registry that tries parsers after the ones already registered.
func (r *Registry) With(parsers ...Parser) *Registry {
	return NewRegistry(append(append([]Parser(nil), r.parsers...), parsers...)...)
}

// Parsers returns the registered parsers in dispatch order.
func (r *Registry) Parsers() []Parser {
	return append([]Parser(nil), r.parsers...)
}

// Lookup returns the first parser that handles the media type and descriptor.
func (r *Registry) Lookup(mt MediaType, d Descriptor) (Parser, error) {
	if d == nil {
		return nil, errors.New("bresp: nil parse descriptor")
	}

	dtyp := reflect.TypeOf(d)
	for _, p := range r.parsers {
		if !mt.Is(p.ContentType()) {
			continue
		}

		if !dtyp.AssignableTo(p.ParseType()) {
			continue
		}

		if parsed := p.ParsedType(); parsed != anyType && !parsed.AssignableTo(d.Target()) {
			continue
		}

		return p, nil
	}

	return nil, NewError(CodeUnsupportedMediaType,
		errors.Wrapf(ErrNoSuchParser, "content type %q, descriptor %T", mt.Type, d))
}

// Parse reads the request body and parses it with the parser selected by the request's content type
// and the descriptor. No matching parser results in a 415 error, a failing parser in a 400 error.
func (c *Context) Parse(d Descriptor) (any, error) {
	body, err := c.Body()
	if err != nil {
		return nil, err
	}

	p, err := c.parsers.Lookup(body.ContentType, d)
	if err != nil {
		return nil, err
	}

	v, err := p.Parse(c, body, d)
	if err != nil {
		if _, ok := asError(err); ok {
			return nil, err
		}

		return nil, NewError(CodeBadRequest, errors.Mark(errors.Wrap(err, "parse request body"), ErrParseFailed))
	}

	return v, nil
}

// Parse parses the request body of c into a T.
func Parse[T any](c *Context, d Descriptor) (T, error) {
	var zero T

	v, err := c.Parse(d)
	if err != nil {
		return zero, err
	}

	if v == nil {
		return zero, nil
	}

	res, ok := v.(T)
	if !ok {
		return zero, errors.AssertionFailedf("parser produced %T, not %v", v, reflect.TypeFor[T]())
	}

	return res, nil
}
