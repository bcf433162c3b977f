package bapp

import (
	"context"
	"time"

	"github.com/advdv/bresp"
	"github.com/cockroachdb/errors"
)

// Timeouts are applied in two tiers:
//
//  1. Server-level timeouts derived from BW_REQUEST_TIMEOUT. They bound the reading of requests and the
//     writing of responses on the connection.
//  2. A per-request context deadline, set by [WithRequestDeadline], that handlers and downstream calls
//     observe. It expires a buffer earlier than the server-level timeouts so an error response can
//     still be written.
//
// A handler that fails because its deadline expired is answered with 504.

// DefaultDeadlineBuffer is the default time reserved before the request timeout for error
// responses and cleanup.
const DefaultDeadlineBuffer = 500 * time.Millisecond

// TimeoutConfig holds timeout configuration for the HTTP server.
type TimeoutConfig struct {
	// RequestTimeout is the time a request may take, from BW_REQUEST_TIMEOUT.
	RequestTimeout time.Duration

	// DeadlineBuffer is subtracted from the request timeout for the per-request deadline. Defaults to
	// DefaultDeadlineBuffer.
	DeadlineBuffer time.Duration
}

func (tc TimeoutConfig) buffer() time.Duration {
	if tc.DeadlineBuffer <= 0 {
		return DefaultDeadlineBuffer
	}
	return tc.DeadlineBuffer
}

// HandlerTimeout returns the time handlers get: the request timeout minus the buffer, or the full
// request timeout when the buffer does not fit.
func (tc TimeoutConfig) HandlerTimeout() time.Duration {
	timeout := tc.RequestTimeout - tc.buffer()
	if timeout <= 0 {
		return tc.RequestTimeout
	}
	return timeout
}

// ServerTimeouts returns the http.Server timeout values. Reading the headers is capped at 5 seconds,
// the other timeouts equal the request timeout.
func (tc TimeoutConfig) ServerTimeouts() (readHeaderTimeout, readTimeout, writeTimeout, idleTimeout time.Duration) {
	timeout := tc.RequestTimeout

	readHeaderTimeout = min(timeout, 5*time.Second)
	readTimeout = timeout
	writeTimeout = timeout
	idleTimeout = timeout

	return
}

// WithRequestDeadline returns middleware that bounds the context of every request to the handler
// timeout of tc. When the handler fails with the deadline exceeded before it committed a response,
// the error is turned into a 504.
func WithRequestDeadline(tc TimeoutConfig) bresp.Middleware {
	timeout := tc.HandlerTimeout()

	return func(next bresp.Handler) bresp.Handler {
		return bresp.HandlerFunc(func(c *bresp.Context) error {
			if timeout <= 0 {
				return next.Handle(c)
			}

			ctx, cancel := context.WithTimeout(c.Context, timeout)
			defer cancel()

			c.Context = ctx
			c.Request = c.Request.WithContext(ctx)

			err := next.Handle(c)
			if err != nil && bresp.CodeOf(err) == bresp.CodeUnknown && errors.Is(err, context.DeadlineExceeded) {
				return bresp.NewError(bresp.CodeGatewayTimeout, errors.Wrap(err, "request deadline exceeded"))
			}

			return err
		})
	}
}

// RequestDeadline returns the context deadline for the current request.
// Returns the zero time and false if no deadline is set.
func RequestDeadline(ctx context.Context) (time.Time, bool) {
	return ctx.Deadline()
}

// RequestRemainingTime returns the duration until the request context deadline.
// Returns 0 if no deadline is set or if the deadline has passed.
func RequestRemainingTime(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	remaining := time.Until(deadline)
	if remaining < 0 {
		return 0
	}
	return remaining
}
