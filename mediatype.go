package bresp

import (
	"bytes"
	"io"
	"mime"
	"strings"
)

// MediaType is a parsed Content-Type value. Type holds the lowercased "type/subtype".
type MediaType struct {
	Type   string
	Params map[string]string
}

// ParseMediaType parses s leniently: when the parameters are malformed the type is still returned.
func ParseMediaType(s string) MediaType {
	typ, params, err := mime.ParseMediaType(s)
	if err != nil {
		typ, _, _ = strings.Cut(s, ";")
		params = nil
	}

	return MediaType{Type: strings.ToLower(strings.TrimSpace(typ)), Params: params}
}

// Is reports whether the media type has the given type/subtype, compared case-insensitively.
func (m MediaType) Is(typ string) bool {
	return m.Type == strings.ToLower(strings.TrimSpace(typ))
}

// Charset returns the charset parameter, if any.
func (m MediaType) Charset() string {
	return m.Params["charset"]
}

// IsText reports whether the type is textual, which decides whether a UTF-8 charset is declared for it.
func (m MediaType) IsText() bool {
	return strings.HasPrefix(m.Type, "text/") || m.Type == "application/json"
}

func (m MediaType) String() string {
	if m.Type == "" {
		return ""
	}

	if s := mime.FormatMediaType(m.Type, m.Params); s != "" {
		return s
	}

	return m.Type
}

// utf8MediaType declares charset=utf-8 on textual content types that have no charset yet. Other values
// are returned verbatim.
func utf8MediaType(ct string) string {
	mt := ParseMediaType(ct)
	if !mt.IsText() || mt.Charset() != "" {
		return ct
	}

	params := make(map[string]string, len(mt.Params)+1)
	for k, v := range mt.Params {
		params[k] = v
	}

	params["charset"] = "utf-8"

	return MediaType{Type: mt.Type, Params: params}.String()
}

// TypedData is a request body together with its media type.
type TypedData struct {
	ContentType MediaType
	body        []byte
}

// NewTypedData inits typed data from a raw content type and body.
func NewTypedData(contentType string, body []byte) TypedData {
	return TypedData{ContentType: ParseMediaType(contentType), body: body}
}

// Bytes returns the raw body.
func (d TypedData) Bytes() []byte { return d.body }

// Text returns the body as a string.
func (d TypedData) Text() string { return string(d.body) }

// Reader returns a reader over the body.
func (d TypedData) Reader() io.Reader { return bytes.NewReader(d.body) }
