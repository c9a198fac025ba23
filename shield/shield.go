// Package shield provides the HTTP middleware stack for the autoscan API:
// security headers, request body limits, CORS, and API key enforcement.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultStack(origins) {
//	    r.Use(mw)
//	}
//	r.Use(shield.RequireAPIKey(apiKey))
package shield

import "net/http"

// DefaultStack returns the standard middleware stack for the query API.
// Ordering: SecurityHeaders → MaxBody → CORS.
func DefaultStack(origins []string) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders(DefaultHeaders()),
		MaxBody(1 << 20),
		CORS(origins),
	}
}
