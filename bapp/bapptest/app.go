// Package bapptest provides test helpers for bapp applications.
//
// [New] builds the dependency graph of [bapp.NewApp] on [fxtest.App], which fails the test on
// dependency errors, and exposes the metrics plumbing so tests can watch what is broadcast:
//
//	bapptest.SetBaseEnv(t, 18081).MetricsInterval("10ms")
//	app := bapptest.New[TestEnv](t, routing)
//	samples := app.Collect(t)
//	app.RequireStart()
//	t.Cleanup(app.RequireStop)
package bapptest

import (
	"sync"
	"testing"

	"github.com/advdv/bresp/bapp"
	"github.com/advdv/bresp/metrics"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

// App is a test app together with the broadcaster and registry of its graph.
type App struct {
	*fxtest.App

	Broadcaster *metrics.Broadcaster
	Registry    *metrics.Registry
}

// New creates a test app with the same dependency graph as [bapp.NewApp].
func New[E bapp.Environment](t testing.TB, routing any, opts ...bapp.Option) *App {
	app := &App{}
	opts = append(opts, bapp.WithFx(fx.Populate(&app.Broadcaster, &app.Registry)))
	app.App = fxtest.New(t, bapp.FxOptions[E](routing, opts...)...)

	return app
}

// Collect registers a listener that keeps every sample published on the app's broadcaster until the
// test ends. The returned function lists the samples seen so far.
func (a *App) Collect(tb testing.TB) func() []string {
	var (
		mu      sync.Mutex
		samples []string
	)

	tok := a.Broadcaster.Register(func(s string) error {
		mu.Lock()
		defer mu.Unlock()
		samples = append(samples, s)

		return nil
	})
	tb.Cleanup(func() { a.Broadcaster.Remove(tok) })

	return func() []string {
		mu.Lock()
		defer mu.Unlock()

		return append([]string(nil), samples...)
	}
}
