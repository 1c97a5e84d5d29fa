package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/resolveai/api/internal/auth"
	httpmiddleware "github.com/resolveai/api/internal/http/middleware"
	"github.com/resolveai/api/internal/repo"
	"github.com/resolveai/api/internal/service"
	"github.com/resolveai/api/internal/storage"
)

// Login autentica pelo identificador unificado. Aceita também os campos
// email e employeeCode usados pelos clientes antigos.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Identifier   string          `json:"identifier"`
		Email        string          `json:"email"`
		EmployeeCode json.RawMessage `json:"employeeCode"`
		Password     string          `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "JSON inválido")
		return
	}

	identifier := strings.TrimSpace(payload.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(payload.Email)
	}
	if identifier == "" && len(payload.EmployeeCode) > 0 {
		identifier = strings.Trim(strings.TrimSpace(string(payload.EmployeeCode)), `"`)
	}

	if identifier == "" || payload.Password == "" {
		WriteError(w, http.StatusBadRequest, "identificador e senha são obrigatórios")
		return
	}

	result, err := h.authService.Login(r.Context(), identifier, payload.Password)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// Register cria conta de cidadão.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "JSON inválido")
		return
	}

	result, err := h.authService.Register(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, result)
}

// Refresh troca refresh token por tokens novos (rotação).
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Kind         string `json:"kind"`
		RefreshToken string `json:"refreshToken"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "JSON inválido")
		return
	}

	kind := strings.TrimSpace(payload.Kind)
	if kind == "" {
		kind = auth.KindUser
	}

	result, err := h.authService.Refresh(r.Context(), kind, payload.RefreshToken)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// Me devolve o perfil do ator autenticado.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := httpmiddleware.GetClaims(r.Context())
	if claims == nil {
		WriteError(w, http.StatusUnauthorized, "Não autenticado")
		return
	}

	result, err := h.authService.Me(r.Context(), claims)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// AdminLogin autentica conta ADMIN e grava o cookie de sessão do painel.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "JSON inválido")
		return
	}

	if strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		WriteError(w, http.StatusBadRequest, "email e senha são obrigatórios")
		return
	}

	result, session, err := h.authService.LoginAdmin(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	h.setAdminSessionCookie(w, session, time.Now().Add(h.cfg.AdminSessionTTL))
	WriteJSON(w, http.StatusOK, result)
}

// AdminLogout revoga a sessão do painel e limpa o cookie.
func (h *Handler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(httpmiddleware.AdminSessionCookie); err == nil {
		if err := h.authService.LogoutAdmin(r.Context(), cookie.Value); err != nil {
			log.Error().Err(err).Msg("falha ao revogar sessão do painel")
		}
	}

	h.clearAdminSessionCookie(w)
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// AdminHome confirma sessão válida do painel.
func (h *Handler) AdminHome(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// AdminSessionInfo devolve o admin da sessão atual para o painel.
func (h *Handler) AdminSessionInfo(w http.ResponseWriter, r *http.Request) {
	user, ok := httpmiddleware.GetAdminUser(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Não autenticado")
		return
	}

	WriteJSON(w, http.StatusOK, service.UserProfile{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	})
}

// UploadSignature assina upload de foto escopado ao ator autenticado.
func (h *Handler) UploadSignature(w http.ResponseWriter, r *http.Request) {
	claims := httpmiddleware.GetClaims(r.Context())
	if claims == nil {
		WriteError(w, http.StatusUnauthorized, "Não autenticado")
		return
	}

	subject, err := claims.SubjectUUID()
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "Não autenticado")
		return
	}

	signature, err := h.signer.SignUpload(r.Context(), subject)
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			WriteError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		log.Error().Err(err).Msg("falha ao assinar upload")
		WriteError(w, http.StatusInternalServerError, "Erro interno do servidor")
		return
	}

	WriteJSON(w, http.StatusOK, signature)
}

func (h *Handler) setAdminSessionCookie(w http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpmiddleware.AdminSessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   !h.devCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearAdminSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpmiddleware.AdminSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !h.devCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrNotAdmin):
		WriteError(w, http.StatusUnauthorized, "Credenciais inválidas")
	case errors.Is(err, service.ErrAccountDisabled):
		WriteError(w, http.StatusForbidden, service.ErrAccountDisabled.Error())
	case errors.Is(err, service.ErrRefreshInvalid), errors.Is(err, auth.ErrInvalidToken):
		WriteError(w, http.StatusUnauthorized, "Sessão expirada")
	case errors.Is(err, service.ErrInvalidRegistration):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, repo.ErrNotFound):
		WriteError(w, http.StatusNotFound, "não encontrado")
	default:
		log.Error().Err(err).Msg("erro inesperado na autenticação")
		WriteError(w, http.StatusInternalServerError, "Erro interno do servidor")
	}
}
