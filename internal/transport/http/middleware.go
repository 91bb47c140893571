package http

import (
	"net/http"
	"slices"
	"strings"
	"time"
)

type middleware func(http.Handler) http.Handler

func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case len(s.cfg.AllowedOrigins) == 0:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case slices.Contains(s.cfg.AllowedOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http: request served", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// requireToken lets the request through only with a valid bearer token.
// Without a configured secret every request passes.
func (s *Server) requireToken(next http.Handler) http.Handler {
	if s.tokens == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.log.Warn("http: missing control token", "remote_addr", r.RemoteAddr)
			writeJSON(w, http.StatusUnauthorized, &Response{Message: "unauthorized"})
			return
		}

		if _, err := s.tokens.Validate(token); err != nil {
			s.log.Warn("http: rejected control token", "remote_addr", r.RemoteAddr, "error", err)
			writeJSON(w, http.StatusUnauthorized, &Response{Message: "unauthorized"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
