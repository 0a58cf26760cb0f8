package api

import (
	"net/http"
	"strings"

	"github.com/openbusinessrecord/obr-registry/internal/config"
)

// corsMiddleware enforces the cross-origin contract of the submission
// endpoint: allow-listed and local-development origins are echoed back,
// anything else gets the fixed default origin. OPTIONS preflights are
// answered here with an empty success.
//
// Hand-rolled rather than go-chi/cors because that middleware omits the
// header entirely on mismatch instead of emitting a default origin.
func corsMiddleware(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin(cfg, r.Header.Get("Origin")))
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func allowOrigin(cfg config.CORSConfig, origin string) string {
	if origin == "" {
		return cfg.DefaultOrigin
	}
	for _, allowed := range cfg.AllowedOrigins {
		if origin == allowed {
			return origin
		}
	}
	for _, prefix := range cfg.LocalPrefixes {
		if strings.HasPrefix(origin, prefix) {
			return origin
		}
	}
	return cfg.DefaultOrigin
}
