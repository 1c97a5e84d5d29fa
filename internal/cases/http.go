package cases

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
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

// Handler orquestra as rotas de ocorrências.
type Handler struct {
	service  *Service
	resolver ActorResolver
}

func NewHandler(service *Service, resolver ActorResolver) *Handler {
	return &Handler{service: service, resolver: resolver}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/cases", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/my", h.handleListMine)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}", h.handlePatch)
		r.Delete("/{id}", h.handleDelete)
	})
}

type createCaseRequest struct {
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	Latitude    any     `json:"latitude"`
	Longitude   any     `json:"longitude"`
	PhotoURL    *string `json:"photoUrl"`
}

type patchCaseRequest struct {
	Status      *string `json:"status"`
	Description *string `json:"description"`
	Message     string  `json:"message"`
	PhotoURL    *string `json:"photoUrl"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	actor, ok := h.actorFrom(w, r)
	if !ok {
		return
	}

	items, err := h.service.List(ctx, actor)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	logRequest(ctx, "GET /cases", actor, start)
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	actor, ok := h.actorFrom(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListMine(ctx, actor)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	logRequest(ctx, "GET /cases/my", actor, start)
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	actor, ok := h.actorFrom(w, r)
	if !ok {
		return
	}

	var req createCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Body inválido")
		return
	}

	created, err := h.service.Create(ctx, actor, CreateInput{
		Category:    policy.NormalizeCategory(req.Category),
		Description: req.Description,
		Address:     req.Address,
		Latitude:    parseCoordinate(req.Latitude),
		Longitude:   parseCoordinate(req.Longitude),
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	logRequest(ctx, "POST /cases", actor, start)
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	actor, ok := h.actorFrom(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID inválido")
		return
	}

	found, err := h.service.Get(ctx, actor, id)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	logRequest(ctx, "GET /cases/{id}", actor, start)
	writeJSON(w, http.StatusOK, found)
}

func (h *Handler) handlePatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	actor, ok := h.actorFrom(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID inválido")
		return
	}

	var req patchCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Body inválido")
		return
	}

	input := PatchInput{
		Description: req.Description,
		Message:     req.Message,
		PhotoURL:    req.PhotoURL,
	}
	if req.Status != nil {
		status := NormalizeStatus(*req.Status)
		input.Status = &status
	}

	updated, err := h.service.Patch(ctx, actor, id, input)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	logRequest(ctx, "PATCH /cases/{id}", actor, start)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "case": updated})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	actor, ok := h.actorFrom(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID inválido")
		return
	}

	if err := h.service.Delete(ctx, actor, id); err != nil {
		h.handleDomainError(w, err)
		return
	}

	logRequest(ctx, "DELETE /cases/{id}", actor, start)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// actorFrom resolve o ator da requisição. Conta sumida ou funcionário
// desativado falham fechado, mesmo com token criptograficamente válido.
func (h *Handler) actorFrom(w http.ResponseWriter, r *http.Request) (policy.Actor, bool) {
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
	return actor, true
}

// parseCoordinate aceita número ou string vinda do app (inclusive com
// vírgula decimal) e descarta valores não finitos.
func parseCoordinate(v any) *float64 {
	switch val := v.(type) {
	case float64:
		return &val
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(val, ",", "."))
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

func (h *Handler) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, policy.ErrForbidden):
		writeError(w, http.StatusForbidden, "Sem permissão")
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Ocorrência não encontrada")
	case errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrNoChanges),
		errors.Is(err, ErrPhotoRequired),
		errors.Is(err, ErrPhotoNotAllowed):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeInternalError(w, err)
	}
}

func writeInternalError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("cases handler error")
	writeError(w, http.StatusInternalServerError, "Erro interno")
}

func logRequest(ctx context.Context, label string, actor policy.Actor, start time.Time) {
	reqID := chimiddleware.GetReqID(ctx)
	log.Info().Str("request_id", reqID).Str("actor_id", actor.ID.String()).
		Str("actor_kind", string(actor.Kind)).Str("label", label).
		Dur("duration", time.Since(start)).Msg("cases_request")
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
