package metrics

import (
	"encoding/json"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Counter is a monotonic count.
type Counter struct{ n atomic.Int64 }

// Inc adds one.
func (c *Counter) Inc() { c.n.Add(1) }

// Add adds d.
func (c *Counter) Add(d int64) { c.n.Add(d) }

// Count returns the current count.
func (c *Counter) Count() int64 { return c.n.Load() }

// Gauge reports a value when the registry is sampled.
type Gauge func() float64

// Registry holds named counters and gauges.
type Registry struct {
	now func() time.Time

	mu       sync.RWMutex
	counters map[string]*Counter
	gauges   map[string]Gauge
}

// NewRegistry inits an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		now:      time.Now,
		counters: map[string]*Counter{},
		gauges:   map[string]Gauge{},
	}
}

// Counter returns the named counter, creating it on first use.
func (r *Registry) Counter(name string) *Counter {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()

	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok = r.counters[name]; !ok {
		c = &Counter{}
		r.counters[name] = c
	}

	return c
}

// Gauge registers fn under name, replacing any gauge with the same name.
func (r *Registry) Gauge(name string, fn Gauge) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gauges[name] = fn
}

// Names returns the names of all counters and gauges.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append(lo.Keys(r.counters), lo.Keys(r.gauges)...)
}

type sample struct {
	Timestamp time.Time          `json:"timestamp"`
	Counters  map[string]int64   `json:"counters"`
	Gauges    map[string]float64 `json:"gauges"`
}

// Sample reads every metric and encodes them as a JSON document. Gauges that report NaN or an
// infinity are left out.
func (r *Registry) Sample() (string, error) {
	r.mu.RLock()
	counters := lo.MapValues(r.counters, func(c *Counter, _ string) int64 { return c.Count() })
	gauges := lo.Assign(r.gauges)
	r.mu.RUnlock()

	values := lo.MapValues(gauges, func(g Gauge, _ string) float64 { return g() })
	values = lo.OmitBy(values, func(_ string, v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) })

	buf, err := json.Marshal(sample{Timestamp: r.now().UTC(), Counters: counters, Gauges: values})
	if err != nil {
		return "", errors.Wrap(err, "encode metrics sample")
	}

	return string(buf), nil
}

// RegisterRuntimeGauges adds gauges for the Go runtime: goroutines, heap allocation and GC cycles.
func RegisterRuntimeGauges(r *Registry) {
	r.Gauge("runtime.goroutines", func() float64 { return float64(runtime.NumGoroutine()) })
	r.Gauge("runtime.heap_alloc_bytes", func() float64 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)

		return float64(ms.HeapAlloc)
	})
	r.Gauge("runtime.gc_cycles", func() float64 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)

		return float64(ms.NumGC)
	})
}
