package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type ctxKey string

const sessionIDKey ctxKey = "session_id"

// sessionID returns the visitor's session ID from the request context.
func sessionID(r *http.Request) string {
	if id, ok := r.Context().Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// sessionMiddleware assigns every visitor an opaque session cookie. The
// form's view state is keyed by it.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(s.cfg.Session.CookieName); err == nil && cookie.Value != "" {
			id = cookie.Value
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Session.CookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   s.cfg.Session.TTLSeconds,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// rateLimitMiddleware throttles by session when known, by client IP
// otherwise.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := sessionID(r)
		if key == "" {
			key = clientIP(r)
		}
		if !s.limiter.allow(key) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
