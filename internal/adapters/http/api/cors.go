package api

import (
	"net/http"
	"strconv"
)

// CORS header values. The relay only ever accepts POST and its preflight.
const (
	allowMethods = "POST, OPTIONS"
	allowHeaders = "Content-Type"
)

// corsPolicy holds the fixed CORS header set written on every response.
type corsPolicy struct {
	origin string
	maxAge int
}

// apply writes the header set. Access-Control-Max-Age is only meaningful on
// preflight responses and is omitted when maxAge is 0.
func (p corsPolicy) apply(h http.Header, preflight bool) {
	h.Set("Access-Control-Allow-Origin", p.origin)
	h.Set("Access-Control-Allow-Methods", allowMethods)
	h.Set("Access-Control-Allow-Headers", allowHeaders)
	if preflight && p.maxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(p.maxAge))
	}
}

// CORSMiddleware attaches the CORS header set before next runs, so every
// response path carries it, including errors and pass-through bodies.
func CORSMiddleware(next http.Handler, origin string, maxAge int) http.Handler {
	policy := corsPolicy{origin: origin, maxAge: maxAge}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		policy.apply(w.Header(), r.Method == http.MethodOptions)
		next.ServeHTTP(w, r)
	})
}
