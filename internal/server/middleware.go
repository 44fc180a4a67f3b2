package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lunastream/internal/repositories"
	"github.com/gorilla/handlers"
	"golang.org/x/crypto/bcrypt"
)

// AdminPasswordHeader carries the admin password for /api/admin routes.
const AdminPasswordHeader = "X-Admin-Password"

// Logging logs one line per request with method, path, status and duration, and recovers from handler panics.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		logged := handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, p handlers.LogFormatterParams) {
			logger.Info("request",
				"method", p.Request.Method,
				"path", p.URL.Path,
				"status", p.StatusCode,
				"size", p.Size,
				"duration", time.Since(p.TimeStamp).Round(time.Microsecond),
			)
		})
		return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{logger}))(logged)
	}
}

type recoveryLogger struct {
	logger *log.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.logger.Error("panic recovered", "error", fmt.Sprint(v...))
}

// CORS allows browser clients from the given origins. An empty list allows any origin.
func CORS(origins []string) Middleware {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", AdminPasswordHeader}),
		handlers.MaxAge(600),
	)
}

// Identity attaches the caller's user to the request context when a valid bearer token is present.
//
// Users are provisioned on first sight. Missing or invalid tokens leave the request as a guest;
// [RequireIdentity] turns that into a 401 where an identity is mandatory.
func Identity(resolver IdentityResolver, users *repositories.UserRepository, logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if resolver == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				logger.Debug("rejected bearer token", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			user, created, err := users.FindOrCreate(*identity)
			if err != nil {
				logger.Error("failed to provision user", "subject", identity.Subject, "error", err)
				writeError(w, http.StatusInternalServerError, "Failed to load user")
				return
			}
			if created {
				logger.Info("provisioned user", "id", user.ID(), "subject", user.Subject())
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireIdentity rejects guests with 401.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Admin checks the admin password header against a bcrypt hash.
//
// An empty hash disables admin access entirely.
func Admin(passwordHash string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if passwordHash == "" {
				writeError(w, http.StatusForbidden, "Admin access is not configured")
				return
			}

			password := r.Header.Get(AdminPasswordHeader)
			if password == "" || bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HashPassword returns a bcrypt hash suitable for the admin_password_hash setting.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
