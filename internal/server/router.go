package server

import (
	"net/http"
)

type route struct {
	method  string
	handler http.Handler
}

// BasicRouter dispatches the loopback server's requests by exact path and a single allowed method.
//
// Middleware wraps the whole router, so requests for unknown paths (a browser asking for /favicon.ico) pass
// through it as well.
type BasicRouter struct {
	routes      map[string]route
	middlewares []Middleware
}

// NewBasicRouter creates an empty [BasicRouter].
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{routes: make(map[string]route)}
}

// Use appends [Middleware]. The first one added is the outermost.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle serves path with handler for method only. Registering a path again replaces it.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.routes[path] = route{method: method, handler: handler}
}

// ServeHTTP answers 404 for unknown paths and 405 with an Allow header for a wrong method.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Apply(http.HandlerFunc(r.dispatch)).ServeHTTP(w, req)
}

func (r *BasicRouter) dispatch(w http.ResponseWriter, req *http.Request) {
	rt, ok := r.routes[req.URL.Path]
	if !ok {
		http.NotFound(w, req)
		return
	}
	if req.Method != rt.method {
		w.Header().Set("Allow", rt.method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rt.handler.ServeHTTP(w, req)
}

// Apply wraps handler with the registered middleware.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}
	return wrapped
}
