// Package bresp provides single-commit HTTP responses with error-returning handlers.
//
// # Overview
//
// Handlers receive a [*Context] that carries the request and a [*Response]. The response accumulates
// a status, headers and cookies until one of its send methods commits it. A response is committed
// exactly once: every later send returns [ErrResponseCommitted] and header changes are ignored.
//
//	mux := bresp.NewServeMux()
//	mux.HandleFunc("GET /items/{id}", func(c *bresp.Context) error {
//	    item, err := db.GetItem(c.PathToken("id"))
//	    if err != nil {
//	        return bresp.NewError(bresp.CodeNotFound, err)
//	    }
//
//	    return c.Response.SendTextAs("application/json", item.JSON())
//	}, "get-item")
//
// # Sending
//
// The send methods differ in the body they take:
//
//   - [Response.Send] commits an empty body
//   - [Response.SendText] defaults to "text/plain; charset=utf-8"
//   - [Response.SendBytes], [Response.SendReader] and [Response.SendBuffer] default to
//     "application/octet-stream"
//   - [Response.SendFile] streams a file from the pipeline's [FileSystem] and bypasses the committer
//
// Textual content types ("text/*" and "application/json") get a utf-8 charset when none is given.
// Cookies added with [Response.Cookie] are serialized into Set-Cookie headers at commit, so they can
// be changed until then.
//
// # Error Handling
//
// When a handler returns an error before the response was committed, the response is reset and an
// error response is sent instead:
//
//   - [*Error] (created with [NewError]): uses the error's code and message
//   - other errors: logged and converted to 500 Internal Server Error
//
// An error returned after commit can only be logged. When the commit itself failed the connection is
// aborted, since the client may have received part of the response.
//
// # Parsing
//
// [Context.Parse] dispatches the request body to the first parser in the pipeline's [Registry] that
// accepts the content type and the descriptor:
//
//	v, err := bresp.Parse[Order](c, bresp.JSONOf[Order]())
//
// No matching parser results in a 415, a failing parser in a 400.
//
// # Blocking work
//
// Reading bodies, stat'ing files and opening them runs on the pipeline's [Background] executor, which
// bounds the number of goroutines doing blocking work.
//
// # Middleware
//
// [Middleware] wraps handlers. The first middleware given to [ServeMux.Use] is the outermost.
// [Path] binds a sub-handler to a path pattern and lets other requests fall through.
//
// # Named Routes and URL Reversing
//
//	mux.HandleFunc("GET /users/{id}", getUser, "get-user")
//	url, err := mux.Reverse("get-user", "123") // returns "/users/123"
//
// # WebSockets
//
// [WebSocketUpgrade] takes over the connection of a request and serves it with a
// [WebSocketHandler]. The response counts as committed afterwards.
package bresp
