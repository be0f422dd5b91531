package middleware

import (
	"encoding/json"
	"errors"
	"lending-engine/internal/config"
	"lending-engine/internal/identity"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload issued by the auth handler. The subject is the
// user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Headers trusted for the caller identity when auth is disabled.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// AuthMiddleware resolves the caller identity from a bearer token and stores
// it in the request context. With auth disabled the identity is read from
// the X-User-* headers and requests without one pass through anonymously.
func AuthMiddleware(cfg config.AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if userID := r.Header.Get(HeaderUserID); userID != "" {
					id := identity.Identity{
						UserID: userID,
						Email:  r.Header.Get(HeaderUserEmail),
						Role:   parseRole(r.Header.Get(HeaderUserRole)),
					}
					r = r.WithContext(identity.WithIdentity(r.Context(), id))
				}
				next.ServeHTTP(w, r)
			})
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticate(r, cfg.JWTSecret)
			if err != nil {
				logger.WarnContext(r.Context(), "AuthMiddleware: rejected request", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole lets through only callers holding role.
func RequireRole(role identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identity.FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
				return
			}
			if id.Role != role {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient role for this operation")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(r *http.Request, secret string) (identity.Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return identity.Identity{}, errors.New("missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return identity.Identity{}, errors.New("invalid Authorization header format")
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(parts[1], &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigningMethod
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return identity.Identity{}, err
	}
	if claims.Subject == "" {
		return identity.Identity{}, errors.New("token has no subject")
	}

	return identity.Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   parseRole(claims.Role),
	}, nil
}

func parseRole(raw string) identity.Role {
	if identity.Role(strings.ToUpper(raw)) == identity.RoleAdmin {
		return identity.RoleAdmin
	}
	return identity.RoleUser
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
