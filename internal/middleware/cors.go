// Package middleware provides HTTP middleware for the focusbooster API.
package middleware

import "net/http"

// AllowedHeaders lists the request headers browsers may send to the API
// and the coach relay.
const AllowedHeaders = "authorization, x-client-info, apikey, content-type"

// CORS returns middleware that handles CORS headers. Preflight requests are
// answered directly.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if allowOrigin, explicit := matchOrigin(allowedOrigins, origin); allowOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", AllowedHeaders)
				// Credentials only for explicitly listed origins.
				if explicit {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// matchOrigin returns the Allow-Origin value for origin and whether it was
// listed explicitly. A wildcard with no Origin header yields "*".
func matchOrigin(allowed []string, origin string) (string, bool) {
	wildcard := false
	for _, o := range allowed {
		if o == "*" {
			wildcard = true
			continue
		}
		if origin != "" && o == origin {
			return origin, true
		}
	}
	if !wildcard {
		return "", false
	}
	if origin == "" {
		return "*", false
	}
	return origin, false
}
