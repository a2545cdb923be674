package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"debtster-collection/internal/domain"
)

type ctxKey string

const (
	UserIDKey   ctxKey = "userID"
	TenantIDKey ctxKey = "tenantID"
)

// TokenFinder resolves a plain bearer token to its stored access token.
type TokenFinder interface {
	FindTokenByPlainToken(ctx context.Context, plainToken string) (*domain.PersonalAccessToken, error)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		if t := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); t != "" {
			return t
		}
	}
	// websocket clients cannot set headers
	return r.URL.Query().Get("token")
}

// SanctumMiddleware authenticates requests with personal access tokens. The
// token's tenant, when set, is stored in the request context.
func SanctumMiddleware(tokens TokenFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			plain := bearerToken(r)
			if plain == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			pat, err := tokens.FindTokenByPlainToken(r.Context(), plain)
			if err != nil {
				log.Printf("[AUTH] %s %s from %s: token rejected: %v", r.Method, r.URL.Path, r.RemoteAddr, err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if pat.ExpiresAt != nil && pat.ExpiresAt.Before(time.Now()) {
				log.Printf("[AUTH] token %d expired at %v", pat.ID, pat.ExpiresAt)
				http.Error(w, "Token expired", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, pat.UserID)
			if pat.TenantID != nil && *pat.TenantID != "" {
				ctx = context.WithValue(ctx, TenantIDKey, *pat.TenantID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	if !ok {
		return 0, errors.New("userID not found in context")
	}
	return userID, nil
}

// GetTenantID returns the tenant the caller's token is bound to, if any.
func GetTenantID(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(string)
	return tenantID, ok && tenantID != ""
}
