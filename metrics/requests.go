package metrics

import (
	"fmt"
	"sync/atomic"

	"github.com/advdv/bresp"
)

// Metric names maintained by [Requests].
const (
	RequestsTotal  = "requests"
	RequestsActive = "requests.active"
	ResponseErrors = "responses.errors"
)

// Requests returns middleware that counts requests, the requests in flight, the responses per status
// class ("responses.2xx" and so on) and the handler errors.
func Requests(reg *Registry) bresp.Middleware {
	var active atomic.Int64
	reg.Gauge(RequestsActive, func() float64 { return float64(active.Load()) })

	total, failed := reg.Counter(RequestsTotal), reg.Counter(ResponseErrors)

	return func(next bresp.Handler) bresp.Handler {
		return bresp.HandlerFunc(func(c *bresp.Context) error {
			total.Inc()
			active.Add(1)
			defer active.Add(-1)

			err := next.Handle(c)

			code := c.Response.Status().Code()
			if err != nil {
				failed.Inc()
				if !c.Response.Committed() {
					code = int(bresp.CodeOf(err))
					if code == 0 {
						code = 500
					}
				}
			}

			reg.Counter(fmt.Sprintf("responses.%dxx", code/100)).Inc()

			return err
		})
	}
}
