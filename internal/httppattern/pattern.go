// Package httppattern parses the route patterns understood by [net/http.ServeMux] so they can be
// matched against paths and built back into URLs.
package httppattern

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
)

// Segment is one slash separated part of a pattern path.
type Segment struct {
	// Literal holds the text of non-wildcard segments.
	Literal string
	// Wild is set for "{name}" and "{name...}" segments. Name is empty for the anonymous multi
	// wildcard a trailing slash implies.
	Wild bool
	Name string
	// Multi is set when the wildcard matches the remainder of the path.
	Multi bool
	// End is set for the "{$}" segment.
	End bool
}

// Pattern is a parsed ServeMux pattern: "[METHOD ][HOST]/[PATH]".
type Pattern struct {
	Str      string
	Method   string
	Host     string
	Segments []Segment
}

// ParsePattern parses s.
func ParsePattern(s string) (*Pattern, error) {
	if s == "" {
		return nil, errors.New("empty pattern")
	}

	pat := &Pattern{Str: s}
	rest := s

	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		pat.Method, rest = rest[:i], strings.TrimLeft(rest[i+1:], " \t")
		if !validMethod(pat.Method) {
			return nil, errors.Newf("invalid method %q", pat.Method)
		}
	}

	i := strings.IndexByte(rest, '/')
	if i < 0 {
		return nil, errors.New("host/path missing /")
	}

	pat.Host, rest = rest[:i], rest[i:]
	if strings.Contains(pat.Host, "{") {
		return nil, errors.New("host contains '{' (missing initial '/'?)")
	}

	seen := map[string]bool{}
	rest = rest[1:]

	for len(rest) > 0 {
		var seg string
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			seg, rest = rest[:j], rest[j+1:]
			if rest == "" {
				// a trailing slash: the segment is followed by an anonymous multi wildcard
				parsed, err := parseSegment(seg, seen)
				if err != nil {
					return nil, err
				}

				if parsed.Multi || parsed.End {
					return nil, errors.Newf("%q must be the final segment", seg)
				}

				pat.Segments = append(pat.Segments, parsed, Segment{Wild: true, Multi: true})

				return pat, nil
			}
		} else {
			seg, rest = rest, ""
		}

		parsed, err := parseSegment(seg, seen)
		if err != nil {
			return nil, err
		}

		if (parsed.Multi || parsed.End) && rest != "" {
			return nil, errors.Newf("%q must be the final segment", seg)
		}

		pat.Segments = append(pat.Segments, parsed)
	}

	if len(pat.Segments) == 0 {
		// "/" matches every path
		pat.Segments = []Segment{{Wild: true, Multi: true}}
	}

	return pat, nil
}

func parseSegment(seg string, seen map[string]bool) (Segment, error) {
	if !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
		if strings.ContainsAny(seg, "{}") {
			return Segment{}, errors.Newf("bad wildcard segment %q (must be entire segment)", seg)
		}

		lit, err := url.PathUnescape(seg)
		if err != nil {
			return Segment{}, errors.Wrap(err, "bad literal segment")
		}

		return Segment{Literal: lit}, nil
	}

	name := seg[1 : len(seg)-1]
	if name == "$" {
		return Segment{End: true}, nil
	}

	multi := false
	if n, ok := strings.CutSuffix(name, "..."); ok {
		name, multi = n, true
	}

	if name == "" {
		return Segment{}, errors.New("empty wildcard")
	}

	if !isIdent(name) {
		return Segment{}, errors.Newf("bad wildcard name %q", name)
	}

	if seen[name] {
		return Segment{}, errors.Newf("duplicate wildcard name %q", name)
	}

	seen[name] = true

	return Segment{Wild: true, Name: name, Multi: multi}, nil
}

// Match matches path against the pattern's segments and returns the named wildcard values. Host and
// method are not considered.
func (p *Pattern) Match(path string) (map[string]string, bool) {
	if !strings.HasPrefix(path, "/") {
		return nil, false
	}

	parts := strings.Split(path[1:], "/")
	vals := map[string]string{}

	for i, seg := range p.Segments {
		if i >= len(parts) {
			return nil, false
		}

		switch {
		case seg.End:
			return vals, i == len(parts)-1 && parts[i] == ""
		case seg.Multi:
			if seg.Name != "" {
				vals[seg.Name] = strings.Join(parts[i:], "/")
			}

			return vals, true
		case seg.Wild:
			if parts[i] == "" {
				return nil, false
			}

			vals[seg.Name] = parts[i]
		case parts[i] != seg.Literal:
			return nil, false
		}
	}

	if len(parts) != len(p.Segments) {
		return nil, false
	}

	return vals, true
}

// Build fills the wildcards of pat, in order, with vals and returns the resulting path.
func Build(pat *Pattern, vals ...string) (string, error) {
	var b strings.Builder

	for _, seg := range pat.Segments {
		switch {
		case seg.End:
			b.WriteByte('/')
			return b.String(), nil
		case seg.Multi && seg.Name == "":
			b.WriteByte('/')
			return b.String(), nil
		case seg.Wild:
			if len(vals) < 1 {
				return "", errors.Newf("not enough values for wildcard %q", seg.Name)
			}

			b.WriteByte('/')
			if seg.Multi {
				b.WriteString(strings.TrimPrefix(escapePath(vals[0]), "/"))
			} else {
				b.WriteString(url.PathEscape(vals[0]))
			}

			vals = vals[1:]
		default:
			b.WriteByte('/')
			b.WriteString(url.PathEscape(seg.Literal))
		}
	}

	if b.Len() == 0 {
		return "/", nil
	}

	return b.String(), nil
}

func escapePath(s string) string {
	parts := strings.Split(s, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}

	return strings.Join(parts, "/")
}

func isIdent(s string) bool {
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}

		return false
	}

	return true
}

func validMethod(m string) bool {
	return m != "" && strings.IndexFunc(m, func(r rune) bool {
		return r < 'A' || r > 'Z'
	}) < 0
}
