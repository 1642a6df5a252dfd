package middleware

import (
	"net"
	"net/http"

	"aquicultura/pkg/requestcontext"
)

// ClientIP records the request's source address in context so services can
// attach it to audit entries. Runs after chi's RealIP so proxy headers are
// already resolved into RemoteAddr.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(requestcontext.WithClientIP(r.Context(), ip)))
	})
}
