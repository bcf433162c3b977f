package bresp

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/url"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

const (
	contentTypeJSON      = "application/json"
	contentTypeForm      = "application/x-www-form-urlencoded"
	contentTypeMultipart = "multipart/form-data"

	maxMultipartMemory = 32 << 20
)

// DefaultParsers returns the registry with the built-in parsers: JSON, JSON path, forms and plain text.
func DefaultParsers() *Registry {
	return NewRegistry(
		NewParser(contentTypeJSON, parseJSON),
		NewParser(contentTypeJSON, parseJSONPath),
		NewParser(contentTypeForm, parseURLEncodedForm),
		NewParser(contentTypeMultipart, parseMultipartForm),
		NewParser(contentTypeText, parseText),
	)
}

// JSON describes parsing a JSON body into a value of Type.
type JSON struct {
	Type                  reflect.Type
	DisallowUnknownFields bool
}

// JSONOf describes parsing a JSON body into a T.
func JSONOf[T any]() JSON {
	return JSON{Type: reflect.TypeFor[T]()}
}

// Strict returns a copy that rejects objects with fields the target does not have.
func (d JSON) Strict() JSON {
	d.DisallowUnknownFields = true
	return d
}

// Target implements Descriptor.
func (d JSON) Target() reflect.Type {
	if d.Type == nil {
		return anyType
	}

	return d.Type
}

func parseJSON(_ *Context, body TypedData, d JSON) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body.Bytes()))
	if d.DisallowUnknownFields {
		dec.DisallowUnknownFields()
	}

	target := reflect.New(d.Target())
	if err := dec.Decode(target.Interface()); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, NewError(CodeUnprocessableEntity, errors.Mark(errors.Wrap(err, "decode json"), ErrParseFailed))
		}

		return nil, errors.Wrap(err, "decode json")
	}

	return target.Elem().Interface(), nil
}

// JSONPath describes extracting a single value from a JSON body using gjson path syntax.
type JSONPath struct {
	Path string
}

// Target implements Descriptor.
func (JSONPath) Target() reflect.Type { return reflect.TypeFor[gjson.Result]() }

func parseJSONPath(_ *Context, body TypedData, d JSONPath) (gjson.Result, error) {
	if !gjson.ValidBytes(body.Bytes()) {
		return gjson.Result{}, errors.New("invalid json")
	}

	res := gjson.GetBytes(body.Bytes(), d.Path)
	if !res.Exists() {
		return gjson.Result{}, errors.Newf("path %q not found", d.Path)
	}

	return res, nil
}

// Form describes parsing an url-encoded or multipart form into url.Values. Only UTF-8 (the default) is
// accepted as charset.
type Form struct {
	Charset string
}

// Target implements Descriptor.
func (Form) Target() reflect.Type { return reflect.TypeFor[url.Values]() }

func (d Form) check(body TypedData) error {
	charset := d.Charset
	if charset == "" {
		charset = body.ContentType.Charset()
	}

	if charset != "" && !strings.EqualFold(charset, "utf-8") {
		return errors.Newf("unsupported form charset %q", charset)
	}

	if !utf8.Valid(body.Bytes()) && body.ContentType.Is(contentTypeForm) {
		return errors.New("form is not valid utf-8")
	}

	return nil
}

func parseURLEncodedForm(_ *Context, body TypedData, d Form) (url.Values, error) {
	if err := d.check(body); err != nil {
		return nil, err
	}

	vals, err := url.ParseQuery(body.Text())
	if err != nil {
		return nil, errors.Wrap(err, "parse url-encoded form")
	}

	return vals, nil
}

func parseMultipartForm(_ *Context, body TypedData, d Form) (url.Values, error) {
	if err := d.check(body); err != nil {
		return nil, err
	}

	boundary := body.ContentType.Params["boundary"]
	if boundary == "" {
		return nil, errors.New("multipart form without boundary")
	}

	form, err := multipart.NewReader(body.Reader(), boundary).ReadForm(maxMultipartMemory)
	if err != nil {
		return nil, errors.Wrap(err, "read multipart form")
	}
	defer form.RemoveAll() //nolint:errcheck

	return url.Values(form.Value), nil
}

// Text describes reading a body as a string.
type Text struct{}

// Target implements Descriptor.
func (Text) Target() reflect.Type { return reflect.TypeFor[string]() }

func parseText(_ *Context, body TypedData, _ Text) (string, error) {
	if !utf8.Valid(body.Bytes()) {
		return "", errors.New("text is not valid utf-8")
	}

	return body.Text(), nil
}
