package middleware

import (
	"net/http"
	"strings"
)

// Normalize standardizes request fields coming through proxies (Vercel/Cloudflare).
// It trims whitespace and a trailing slash from the path and restores scheme and host
// from forwarding headers.
func Normalize() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := strings.TrimSpace(r.URL.Path)
			if len(p) > 1 {
				p = strings.TrimRight(p, "/")
				if p == "" {
					p = "/"
				}
			}
			r.URL.Path = p
			r.URL.RawPath = ""

			if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
				r.URL.Scheme = proto
			}
			if host := r.Header.Get("X-Forwarded-Host"); host != "" {
				r.Host = host
			}
			next.ServeHTTP(w, r)
		})
	}
}
