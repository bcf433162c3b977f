package bresp

import (
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	headerContentType   = "Content-Type"
	headerContentLength = "Content-Length"
	headerSetCookie     = "Set-Cookie"
	headerAllow         = "Allow"
)

type headerEntry struct {
	name  string
	value string
}

// Headers is an ordered multimap of response headers. Names are compared case-insensitively, the casing
// that is kept for a name is the first one that was seen. The store tracks whether a Content-Type is set
// so that send operations can apply their default.
type Headers struct {
	entries        []headerEntry
	contentTypeSet bool
	frozen         bool
}

// NewHeaders inits an empty header store.
func NewHeaders() *Headers {
	return &Headers{}
}

// Add appends a value for the named header.
func (h *Headers) Add(name, value string) {
	if h.frozen {
		return
	}

	h.entries = append(h.entries, headerEntry{h.canonical(name), value})
	h.track(name)
}

// Set replaces all values of the named header with value.
func (h *Headers) Set(name, value string) {
	h.SetValues(name, []string{value})
}

// SetValues replaces all values of the named header with values. An empty values slice removes the header.
func (h *Headers) SetValues(name string, values []string) {
	if h.frozen {
		return
	}

	canonical := h.canonical(name)
	h.drop(name)
	for _, v := range values {
		h.entries = append(h.entries, headerEntry{canonical, v})
	}

	h.track(name)
}

// SetDate sets the named header to t formatted as an IMF-fixdate.
func (h *Headers) SetDate(name string, t time.Time) {
	h.Set(name, t.UTC().Format(http.TimeFormat))
}

// Remove deletes every value of the named header.
func (h *Headers) Remove(name string) {
	if h.frozen {
		return
	}

	h.drop(name)
	h.track(name)
}

// Clear removes every header.
func (h *Headers) Clear() {
	if h.frozen {
		return
	}

	h.entries = h.entries[:0]
	h.contentTypeSet = false
}

// Get returns the first value of the named header, or the empty string.
func (h *Headers) Get(name string) string {
	for _, e := range h.entries {
		if strings.EqualFold(e.name, name) {
			return e.value
		}
	}

	return ""
}

// Values returns every value of the named header in insertion order.
func (h *Headers) Values(name string) []string {
	var vals []string
	for _, e := range h.entries {
		if strings.EqualFold(e.name, name) {
			vals = append(vals, e.value)
		}
	}

	return vals
}

// Date parses the first value of the named header as an HTTP date.
func (h *Headers) Date(name string) (time.Time, error) {
	return http.ParseTime(h.Get(name))
}

// Has reports whether the named header has at least one value.
func (h *Headers) Has(name string) bool {
	return lo.ContainsBy(h.entries, func(e headerEntry) bool { return strings.EqualFold(e.name, name) })
}

// Names returns the distinct header names in the order they were first added.
func (h *Headers) Names() []string {
	uniq := lo.UniqBy(h.entries, func(e headerEntry) string { return strings.ToLower(e.name) })
	return lo.Map(uniq, func(e headerEntry, _ int) string { return e.name })
}

// ContentTypeSet reports whether a Content-Type header is present.
func (h *Headers) ContentTypeSet() bool { return h.contentTypeSet }

// Frozen reports whether the headers were committed. Mutations of a frozen store are ignored.
func (h *Headers) Frozen() bool { return h.frozen }

// WriteTo copies all entries onto dst, replacing any values dst already had for the same names.
func (h *Headers) WriteTo(dst http.Header) {
	for _, name := range h.Names() {
		dst.Del(name)
	}

	for _, e := range h.entries {
		dst.Add(e.name, e.value)
	}
}

func (h *Headers) freeze() { h.frozen = true }

func (h *Headers) reset() {
	h.entries = h.entries[:0]
	h.contentTypeSet = false
	h.frozen = false
}

func (h *Headers) canonical(name string) string {
	for _, e := range h.entries {
		if strings.EqualFold(e.name, name) {
			return e.name
		}
	}

	return name
}

func (h *Headers) drop(name string) {
	h.entries = lo.Reject(h.entries, func(e headerEntry, _ int) bool { return strings.EqualFold(e.name, name) })
}

// track keeps the content-type flag in step with the entries after a mutation of the named header.
func (h *Headers) track(name string) {
	if strings.EqualFold(name, headerContentType) {
		h.contentTypeSet = h.Has(headerContentType)
	}
}
