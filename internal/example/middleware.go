// Package example implements example middleware in an outside package.
package example

import (
	"context"
	"time"

	"github.com/advdv/bresp"
	"go.uber.org/zap"
)

// ctxKey type scopes middleware values.
type ctxKey string

// Middleware provides an example for middleware that adds a request scoped logger to the context and
// logs the outcome of every request.
func Middleware(logs *zap.Logger) bresp.Middleware {
	return func(n bresp.Handler) bresp.Handler {
		return bresp.HandlerFunc(func(c *bresp.Context) error {
			logs := logs.With(zap.String("method", c.Request.Method), zap.String("path", c.Request.URL.Path))

			c.Context = context.WithValue(c.Context, ctxKey("zap"), logs)
			c.Request = c.Request.WithContext(c.Context)

			start := time.Now()
			err := n.Handle(c)

			logs.Info("served request",
				zap.Int("status", c.Response.Status().Code()),
				zap.Bool("committed", c.Response.Committed()),
				zap.Duration("took", time.Since(start)),
				zap.Error(err))

			return err
		})
	}
}

// Log returns the logger the middleware stored in ctx, or a no-op logger.
func Log(ctx context.Context) *zap.Logger {
	if v, ok := ctx.Value(ctxKey("zap")).(*zap.Logger); ok {
		return v
	}

	return zap.NewNop()
}
