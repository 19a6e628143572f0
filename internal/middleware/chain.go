package middleware

import "net/http"

// Chain applies middleware in the order given, so the first one sees the
// request first.
//
//	handler := Chain(router,
//	    RequestLogging,  // outermost
//	    CORS(origin),
//	)
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
