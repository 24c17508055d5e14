package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ACondori95/admin-tarea/apperrors"
	"github.com/ACondori95/admin-tarea/logging"
	"github.com/ACondori95/admin-tarea/models"
	"github.com/ACondori95/admin-tarea/utils"
)

const (
	msgNoToken    = "Not authorized, no token"
	msgAdminsOnly = "Access denied, admins only"

	RequestIDHeader = "X-Request-ID"
)

type contextKey int

const identityKey contextKey = 0

// Authenticator resolves a bearer token to the caller's identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Identity, error)
}

// JWTAuthMiddleware rejects requests without a valid bearer token and stores
// the resolved identity in the request context.
func JWTAuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(tokenStr) == "" {
				logging.Logger.Warnf("Event ID: JWT_AUTH_MISSING_HEADER, Description: No bearer token for request to %s %s", r.Method, r.URL.Path)
				utils.WriteError(w, r, apperrors.Authentication(msgNoToken))
				return
			}

			identity, err := auth.Authenticate(r.Context(), strings.TrimSpace(tokenStr))
			if err != nil {
				utils.WriteError(w, r, err)
				return
			}

			logging.Logger.Debugf("Event ID: JWT_AUTH_SUCCESS, Description: Request to %s %s authenticated as %s", r.Method, r.URL.Path, identity.ID.Hex())
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// AdminOnly must run after JWTAuthMiddleware.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || !identity.IsAdmin() {
			utils.WriteError(w, r, apperrors.Authorization(msgAdminsOnly))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(models.Identity)
	return identity, ok
}

// EnableCORS allows the configured client origin. "*" allows any origin.
func EnableCORS(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestTimeout puts a deadline of d on the request context so every store
// call made with it is bounded. d <= 0 disables it.
func RequestTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger tags every request with an id and logs its outcome.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logging.Logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"status":     rec.status,
			"duration":   time.Since(start).String(),
		}).Infof("Event ID: HTTP_REQUEST, Description: %s %s", r.Method, r.URL.Path)
	})
}
