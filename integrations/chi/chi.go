// Package chi wires a respenvelope.Responder into a chi router.
//
// Chi uses standard net/http handlers, so the Responder's handlers and
// middleware plug in directly. This package sets them up in one call.
package chi

import (
	"net/http"

	respenvelope "github.com/blackwell-systems/resp-envelope"
	"github.com/go-chi/chi/v5"
)

// Trace is respenvelope.TraceMiddleware, for r.Use.
func Trace(next http.Handler) http.Handler {
	return respenvelope.TraceMiddleware(next)
}

// Mount installs trace propagation, panic recovery and the not-found and
// method-not-allowed envelopes on r. Call it before registering routes;
// chi requires middleware to come first.
//
// Example:
//
//	r := chi.NewRouter()
//	envchi.Mount(r, rs)
//	r.Get("/products/{id}", rs.Handle(showProduct).ServeHTTP)
func Mount(r chi.Router, rs *respenvelope.Responder) {
	r.Use(Trace, rs.Recover)
	r.NotFound(rs.NotFound)
	r.MethodNotAllowed(rs.MethodNotAllowed)
}

// Param returns the URL parameter key of r.
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}
