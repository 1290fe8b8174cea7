package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"familytree/internal/logger"
	"familytree/internal/models"
	"familytree/internal/security"
	"familytree/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey ContextKey = "user"
	// authViaCookieKey marks requests authenticated by the session cookie
	authViaCookieKey ContextKey = "auth_cookie"

	CSRFHeader = "X-CSRF-Token"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	csrf        *security.CSRFGenerator
	limiter     *security.RateLimiter
	logger      *logger.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, csrf *security.CSRFGenerator, limiter *security.RateLimiter, log *logger.Logger) *Middleware {
	if log == nil {
		log = logger.Nop()
	}
	return &Middleware{
		authService: authService,
		csrf:        csrf,
		limiter:     limiter,
		logger:      log,
	}
}

// RequireAuth accepts a bearer token or the session cookie and puts the user on the context
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if header := r.Header.Get("Authorization"); header != "" {
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeErrorMessage(w, http.StatusUnauthorized, "unauthorized", "unsupported authorization scheme")
				return
			}
			user, err := m.authService.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				respondWithError(w, m.logger, err)
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, user)))
			return
		}

		cookie, err := r.Cookie(security.SessionCookieName)
		if err != nil {
			writeErrorMessage(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
			return
		}
		user, err := m.authService.ValidateSession(cookie.Value)
		if err != nil {
			http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookieName))
			respondWithError(w, m.logger, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = context.WithValue(ctx, authViaCookieKey, cookie.Value)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin requires an authenticated site administrator
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil || !user.IsAdmin {
			writeErrorMessage(w, http.StatusForbidden, "forbidden", ErrAdminRequired)
			return
		}
		next(w, r)
	})
}

// CSRFProtect requires a CSRF token on unsafe requests authenticated by cookie.
// Bearer-token clients are not exposed to CSRF and skip the check.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, viaCookie := r.Context().Value(authViaCookieKey).(string)
		if !viaCookie || isSafeMethod(r.Method) {
			next(w, r)
			return
		}
		if !m.csrf.ValidateToken(sessionID, r.Header.Get(CSRFHeader)) {
			m.logger.Warn("csrf token rejected", "path", r.URL.Path, "ip", security.GetClientIP(r))
			writeErrorMessage(w, http.StatusForbidden, "csrf", ErrInvalidCSRFToken)
			return
		}
		next(w, r)
	}
}

// CSRFProtectSession guards handlers that accept anonymous callers. A request
// carrying a live session cookie must present that session's CSRF token.
func (m *Middleware) CSRFProtectSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(security.SessionCookieName)
		if err != nil || isSafeMethod(r.Method) || r.Header.Get("Authorization") != "" {
			next(w, r)
			return
		}
		if _, err := m.authService.ValidateSession(cookie.Value); err != nil {
			next(w, r)
			return
		}
		if !m.csrf.ValidateToken(cookie.Value, r.Header.Get(CSRFHeader)) {
			m.logger.Warn("csrf token rejected", "path", r.URL.Path, "ip", security.GetClientIP(r))
			writeErrorMessage(w, http.StatusForbidden, "csrf", ErrInvalidCSRFToken)
			return
		}
		next(w, r)
	}
}

// RateLimit throttles requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(security.GetClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeErrorMessage(w, http.StatusTooManyRequests, "rate_limited", ErrTooManyRequests)
			return
		}
		next(w, r)
	}
}

// Logging logs every request with its status and duration
func Logging(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"ip", security.GetClientIP(r),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// actorID is the member the current user acts as
func actorID(r *http.Request) int64 {
	return GetUserFromContext(r.Context()).ActorID()
}
