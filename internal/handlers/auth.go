package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shopfront/apiserver/internal/apperror"
	"github.com/shopfront/apiserver/internal/auth"
	"github.com/shopfront/apiserver/internal/services"
)

type contextKey string

const contextClaimsKey contextKey = "claims"

// Gate authenticates bearer tokens and enforces role claims.
type Gate struct {
	tokens *auth.TokenIssuer
}

func NewGate(tokens *auth.TokenIssuer) *Gate {
	return &Gate{tokens: tokens}
}

// Authenticate requires a valid bearer token and stores its claims in the
// request context. A missing subject is unauthorized; a subject that is not
// a user ID is a bad request.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims, err := g.tokens.Parse(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if _, err := claims.UserID(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid user id in token")
			return
		}

		ctx := context.WithValue(r.Context(), contextClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated callers whose claims lack role. It must
// run after Authenticate.
func (g *Gate) RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !claims.HasRole(role) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Admin is Authenticate followed by the Admin role check.
func (g *Gate) Admin() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{g.Authenticate, g.RequireRole(auth.RoleAdmin)}
}

// NotBanned is Authenticate followed by the notBanned role check.
func (g *Gate) NotBanned() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{g.Authenticate, g.RequireRole(auth.RoleNotBanned)}
}

func claimsFromContext(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(contextClaimsKey).(auth.Claims)
	return claims, ok
}

// actorFromContext returns the caller recorded by Authenticate.
func actorFromContext(ctx context.Context) (services.Actor, error) {
	claims, ok := claimsFromContext(ctx)
	if !ok {
		return services.Actor{}, apperror.Unauthorized("unauthorized")
	}
	id, err := claims.UserID()
	if err != nil {
		return services.Actor{}, apperror.BadRequest("invalid user id in token")
	}
	return services.Actor{UserID: id, IsAdmin: claims.IsAdmin}, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
