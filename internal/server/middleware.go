package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
)

type contextKey int

const (
	userIDKey contextKey = iota
	claimsKey
)

// UserIDFrom returns the authenticated user ID stored by [RequireAuth].
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// ClaimsFrom returns the verified session claims stored by [RequireAuth].
func ClaimsFrom(ctx context.Context) (*SessionClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*SessionClaims)
	return claims, ok
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs method, path, status and duration of every request.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			level := log.InfoLevel
			if rec.status >= http.StatusInternalServerError {
				level = log.ErrorLevel
			}
			logger.Log(level, "request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
		})
	}
}

// Recoverer turns a panic into a 500 JSON response. The panic value is logged, never sent to the client.
func Recoverer(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logger.Error("panic in handler", "method", r.Method, "path", r.URL.Path, "panic", v)
					writeError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORSOptions configures [CORS].
type CORSOptions struct {
	AllowedOrigins   []string // "*" allows any origin
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
}

// DefaultCORSOptions allows the browser client at origins to call the API with credentials.
func DefaultCORSOptions(origins []string) CORSOptions {
	return CORSOptions{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
	}
}

// CORS sets cross-origin headers for allowed origins and answers preflight requests with 204.
func CORS(opts CORSOptions) Middleware {
	methods := strings.Join(opts.AllowedMethods, ", ")
	headers := strings.Join(opts.AllowedHeaders, ", ")
	anyOrigin := slices.Contains(opts.AllowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := origin != "" && (anyOrigin || slices.Contains(opts.AllowedOrigins, origin))

			w.Header().Add("Vary", "Origin")
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				if opts.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if allowed {
					w.Header().Set("Access-Control-Allow-Methods", methods)
					w.Header().Set("Access-Control-Allow-Headers", headers)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RevocationChecker reports whether a session token ID has been revoked.
type RevocationChecker interface {
	IsRevoked(jti string) (bool, error)
}

// RequireAuth verifies the bearer session token and stores the user ID in the request context.
//
// Failures are answered with 401 and one of four fixed bodies (missing, expired, invalid, revoked).
func RequireAuth(issuer *TokenIssuer, revocations RevocationChecker, logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err == nil {
				var claims *SessionClaims
				if claims, err = issuer.Parse(raw); err == nil {
					err = checkRevoked(revocations, claims.ID)
					if err == nil {
						ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
						ctx = context.WithValue(ctx, claimsKey, claims)
						next.ServeHTTP(w, r.WithContext(ctx))
						return
					}
				}
			}

			if !errors.Is(err, shared.ErrAuth) {
				logger.Error("session check failed", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			logger.Debug("rejected session", "path", r.URL.Path, "reason", err)
			writeError(w, http.StatusUnauthorized, authMessage(err))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", shared.ErrTokenMissing
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", shared.ErrTokenMissing
	}
	return strings.TrimSpace(token), nil
}

func checkRevoked(revocations RevocationChecker, jti string) error {
	if revocations == nil {
		return nil
	}
	revoked, err := revocations.IsRevoked(jti)
	if err != nil {
		return err
	}
	if revoked {
		return shared.ErrTokenRevoked
	}
	return nil
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, shared.ErrTokenExpired):
		return "Token has expired"
	case errors.Is(err, shared.ErrTokenMissing):
		return "Missing authorization token"
	case errors.Is(err, shared.ErrTokenRevoked):
		return "Token has been revoked"
	default:
		return "Invalid token"
	}
}
