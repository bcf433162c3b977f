// Package metrics streams samples of the application's metrics to websocket clients.
//
// A [Reporter] periodically takes a sample, usually the JSON document of a [Registry], and publishes it
// on a [Broadcaster]. The [Endpoint] upgrades GET requests to websockets and forwards every published
// sample to each connected client as a text frame.
package metrics
