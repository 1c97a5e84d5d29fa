package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/resolveai/api/internal/repo"
)

// AdminSessionCookie é o nome do cookie httpOnly do painel.
const AdminSessionCookie = "admin_session"

const contextKeyAdminUser contextKey = "admin_user"

// GetAdminUser recupera o admin validado pela sessão do painel.
func GetAdminUser(ctx context.Context) (repo.User, bool) {
	user, ok := ctx.Value(contextKeyAdminUser).(repo.User)
	return user, ok
}

// SessionValidator confere o valor opaco da sessão do painel.
type SessionValidator interface {
	ValidateAdminSession(ctx context.Context, raw string) (repo.User, error)
}

// AdminSession protege as rotas do painel via cookie. Sem sessão
// válida, redireciona para a tela de login preservando o destino no
// parâmetro next. Rotas sob /admin/auth ficam de fora do gate.
func AdminSession(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/admin/auth") {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(AdminSessionCookie)
			if err == nil {
				if user, vErr := validator.ValidateAdminSession(r.Context(), cookie.Value); vErr == nil {
					ctx := context.WithValue(r.Context(), contextKeyAdminUser, user)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			target := r.URL.Path
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			dest := "/admin/auth?next=" + url.QueryEscape(SanitizeNext(target))
			http.Redirect(w, r, dest, http.StatusFound)
		})
	}
}

// SanitizeNext aceita apenas caminhos internos como destino pós-login.
// URLs absolutas, protocol-relative ("//...") e valores vazios caem
// para /admin. Caminhos legados /cases são reescritos para /admin/cases.
func SanitizeNext(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/admin"
	}
	if strings.Contains(raw, "\\") {
		return "/admin"
	}

	if raw == "/cases" || strings.HasPrefix(raw, "/cases/") || strings.HasPrefix(raw, "/cases?") {
		return "/admin" + raw
	}
	return raw
}
