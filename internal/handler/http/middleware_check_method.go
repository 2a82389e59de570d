package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// maskUnknownMethods is registered as the router's MethodNotAllowed
// handler. Chi answers 405 when a path exists but the method does not,
// which confirms the route to anyone probing the auth surface with OPTIONS
// or GET. Unsupported methods get the same 404 an unknown path would.
// The lookup compares plain route patterns only; parameterised routes fall
// through to the 404, which is the masking answer anyway.
func maskUnknownMethods(router *chi.Mux) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, route := range router.Routes() {
			if route.Pattern != r.URL.Path {
				continue
			}
			if _, ok := route.Handlers[r.Method]; ok {
				router.ServeHTTP(w, r)
				return
			}
			break
		}
		w.WriteHeader(http.StatusNotFound)
	}
}
