package employees

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/resolveai/api/internal/auth"
	httpmiddleware "github.com/resolveai/api/internal/http/middleware"
	"github.com/resolveai/api/internal/policy"
)

// ActorResolver traduz claims verificadas no estado atual da conta.
type ActorResolver interface {
	ResolveActor(ctx context.Context, claims *auth.Claims) (policy.Actor, error)
}

// Handler orquestra as rotas de gestão de funcionários (admin).
type Handler struct {
	service  *Service
	resolver ActorResolver
}

func NewHandler(service *Service, resolver ActorResolver) *Handler {
	return &Handler{service: service, resolver: resolver}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Post("/", h.handleRegister)
		r.Get("/", h.handleList)
		r.Patch("/{id}/toggle", h.handleToggle)
	})
}

type registerRequest struct {
	Name            string `json:"name"`
	CPF             string `json:"cpf"`
	Role            string `json:"role"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	EmployeeCode    *int   `json:"employeeCode"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Body inválido")
		return
	}

	created, err := h.service.Register(ctx, RegisterInput{
		Name:            req.Name,
		CPF:             req.CPF,
		Role:            req.Role,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		EmployeeCode:    req.EmployeeCode,
	})
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	logRequest(ctx, "POST /employees", actor, start)
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	items, err := h.service.List(ctx)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	logRequest(ctx, "GET /employees", actor, start)
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID inválido")
		return
	}

	updated, err := h.service.Toggle(ctx, id)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	logRequest(ctx, "PATCH /employees/{id}/toggle", actor, start)
	writeJSON(w, http.StatusOK, map[string]any{"id": updated.ID, "isActive": updated.IsActive})
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (policy.Actor, bool) {
	claims := httpmiddleware.GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Não autenticado")
		return policy.Actor{}, false
	}

	actor, err := h.resolver.ResolveActor(r.Context(), claims)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Não autenticado")
		return policy.Actor{}, false
	}

	if actor.Kind != policy.KindAdmin {
		writeError(w, http.StatusForbidden, "Acesso restrito a administradores")
		return policy.Actor{}, false
	}
	return actor, true
}

func (h *Handler) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Funcionário não encontrado")
	case errors.Is(err, ErrCPFTaken), errors.Is(err, ErrCodeTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrInvalidCPF),
		errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrPasswordTooShort),
		errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrBadCodePrefix):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrCodeGenerationExhausted):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeInternalError(w, err)
	}
}

func writeInternalError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("employees handler error")
	writeError(w, http.StatusInternalServerError, "Erro interno")
}

func logRequest(ctx context.Context, label string, actor policy.Actor, start time.Time) {
	reqID := chimiddleware.GetReqID(ctx)
	log.Info().Str("request_id", reqID).Str("actor_id", actor.ID.String()).
		Str("label", label).Dur("duration", time.Since(start)).Msg("employees_request")
}

// Helpers de resposta JSON no formato da API ({"error": mensagem}).
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
