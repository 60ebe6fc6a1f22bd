package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/penter405/brainsync/internal/common"
	"github.com/penter405/brainsync/internal/netx"
	"github.com/penter405/brainsync/internal/server/metrics"
)

type ctxKey string

const (
	userIDKey    ctxKey = "userID"
	requestIDKey ctxKey = "requestID"
)

const requestIDHeader = "X-Request-Id"

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// sessionUserID resolves the caller from the session cookie, falling back to
// the Authorization header when the cookie is absent or fails verification.
// The reason for a failure is only counted.
func (s *HTTPServer) sessionUserID(r *http.Request) (string, bool) {
	var tokens []string
	if c, err := r.Cookie(common.SessionCookieName); err == nil && c.Value != "" {
		tokens = append(tokens, c.Value)
	}
	if t := netx.BearerToken(r.Header.Get(common.AuthorizationHeaderName)); t != "" {
		tokens = append(tokens, t)
	}
	if len(tokens) == 0 {
		metrics.IncrementSessionVerification(metrics.SessionMissing)
		return "", false
	}

	var err error
	for _, token := range tokens {
		var userID string
		if userID, err = s.sessions.Verify(token); err == nil {
			metrics.IncrementSessionVerification(metrics.SessionValid)
			return userID, true
		}
	}
	if errors.Is(err, common.ErrTokenExpired) {
		metrics.IncrementSessionVerification(metrics.SessionExpired)
	} else {
		metrics.IncrementSessionVerification(metrics.SessionInvalid)
	}
	return "", false
}

// requireSession rejects unauthenticated requests with 401.
func (s *HTTPServer) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.sessionUserID(r)
		if !ok {
			writeError(w, common.ErrInvalidToken)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	}
}

// optionalSession stores the user id in the context when a valid session
// is presented and passes every request through.
func (s *HTTPServer) optionalSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := s.sessionUserID(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		w.Header().Set(requestIDHeader, reqID)

		ctx := context.WithValue(r.Context(), requestIDKey, reqID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		s.logger.Info(ctx, "request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
