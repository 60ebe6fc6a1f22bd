package httpapi

import (
	"net/http"
	"net/url"
)

const (
	allowMethods = "GET, POST, DELETE, OPTIONS"
	allowHeaders = "Content-Type, Authorization"
)

// cors answers with exactly one allowed origin. The request's Origin is
// echoed only when it is the configured origin or a plain-http localhost
// origin; any other caller gets the configured origin back, which its
// browser rejects. Preflights end here.
func (s *HTTPServer) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.allowedOrigin(r.Header.Get("Origin")))
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Cache-Control", "no-store")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) allowedOrigin(origin string) string {
	if origin != "" && (origin == s.opts.AllowedOrigin || isLocalhostOrigin(origin)) {
		return origin
	}
	return s.opts.AllowedOrigin
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Scheme == "http" && u.Hostname() == "localhost" && u.Path == "" && u.User == nil
}
