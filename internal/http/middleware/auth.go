package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/resolveai/api/internal/auth"
)

type contextKey string

const contextKeyClaims contextKey = "claims"

// Auth valida JWT de acesso e injeta as claims no contexto. Rotas que
// aceitam anônimo devem usar AuthOptional.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFromHeader(jwtManager, r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Não autenticado")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func claimsFromHeader(jwtManager *auth.JWTManager, r *http.Request) (*auth.Claims, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, false
	}

	claims, err := jwtManager.ParseAndValidate(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}

// WithClaims injeta claims no contexto.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, contextKeyClaims, claims)
}

// GetClaims recupera as claims do contexto, ou nil.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(contextKeyClaims).(*auth.Claims)
	return claims
}
