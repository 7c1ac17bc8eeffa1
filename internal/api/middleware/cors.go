package middleware

import (
	"net/http"
	"slices"

	"github.com/rs/cors"
)

// CORS answers preflight requests and adds CORS headers for the given origins.
// A "*" entry allows every origin; the request origin is echoed back so that
// credentialed requests are accepted.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           600,
	}

	if slices.Contains(allowedOrigins, "*") {
		opts.AllowOriginFunc = func(string) bool { return true }
	} else {
		opts.AllowedOrigins = allowedOrigins
	}

	c := cors.New(opts)

	return c.Handler
}
