package bresp

import (
	"fmt"
	"net/http"
)

// Status holds the response status code and an optional reason phrase.
type Status struct {
	code   int
	reason string
}

// Set sets the code and clears any custom reason. It panics for codes outside 100-599, like
// [http.ResponseWriter.WriteHeader] does.
func (s *Status) Set(code int) {
	s.SetReason(code, "")
}

// SetReason sets the code together with a custom reason phrase.
func (s *Status) SetReason(code int, reason string) {
	if code < 100 || code > 599 {
		panic(fmt.Sprintf("bresp: invalid status code %d", code))
	}

	s.code, s.reason = code, reason
}

// Code returns the status code, 200 when nothing was set.
func (s *Status) Code() int {
	if s.code == 0 {
		return http.StatusOK
	}

	return s.code
}

// Reason returns the custom reason phrase, or the standard text for the code.
func (s *Status) Reason() string {
	if s.reason != "" {
		return s.reason
	}

	return http.StatusText(s.Code())
}

func (s *Status) String() string {
	return fmt.Sprintf("%d %s", s.Code(), s.Reason())
}
