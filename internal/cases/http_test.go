package cases

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/resolveai/api/internal/auth"
	httpmiddleware "github.com/resolveai/api/internal/http/middleware"
	"github.com/resolveai/api/internal/policy"
)

// stubResolver devolve o ator mapeado pelo subject das claims.
type stubResolver struct {
	actors map[string]policy.Actor
}

func (s *stubResolver) ResolveActor(ctx context.Context, claims *auth.Claims) (policy.Actor, error) {
	actor, ok := s.actors[claims.Subject]
	if !ok {
		return policy.Actor{}, auth.ErrInvalidToken
	}
	return actor, nil
}

func claimsFor(actor policy.Actor) *auth.Claims {
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: actor.ID.String()},
	}
	switch actor.Kind {
	case policy.KindAdmin:
		claims.Kind = auth.KindAdmin
		claims.Role = "ADMIN"
	case policy.KindEmployee:
		claims.Kind = auth.KindEmployee
		claims.Role = "EMPLOYEE"
	default:
		claims.Kind = auth.KindUser
		claims.Role = "USER"
	}
	return claims
}

func TestCaseHandlers(t *testing.T) {
	owner := uuid.New()
	caseID := uuid.New()

	citizen := policy.Actor{Kind: policy.KindCitizen, ID: owner}
	stranger := policy.Actor{Kind: policy.KindCitizen, ID: uuid.New()}
	admin := policy.Actor{Kind: policy.KindAdmin, ID: uuid.New()}
	employee := policy.Actor{
		Kind:          policy.KindEmployee,
		ID:            uuid.New(),
		CategoryScope: []policy.Category{policy.CategoryOutros},
	}

	resolver := &stubResolver{actors: map[string]policy.Actor{
		citizen.ID.String():  citizen,
		stranger.ID.String(): stranger,
		admin.ID.String():    admin,
		employee.ID.String(): employee,
	}}

	newRepo := func() *stubRepo {
		return &stubRepo{
			meta: CaseMeta{ID: caseID, Category: policy.CategoryOutros, Status: StatusRecebida, OwnerID: &owner},
			kase: &Case{ID: caseID, Category: policy.CategoryOutros, Status: StatusRecebida, OwnerID: &owner},
		}
	}

	tests := []struct {
		name   string
		method string
		path   string
		actor  *policy.Actor
		body   any
		status int
	}{
		{"lista sem token", http.MethodGet, "/cases", nil, nil, http.StatusUnauthorized},
		{"cidadão não lista acervo", http.MethodGet, "/cases", &citizen, nil, http.StatusForbidden},
		{"admin lista", http.MethodGet, "/cases", &admin, nil, http.StatusOK},
		{"funcionário lista", http.MethodGet, "/cases", &employee, nil, http.StatusOK},
		{"minhas ocorrências", http.MethodGet, "/cases/my", &citizen, nil, http.StatusOK},
		{"cidadão cria", http.MethodPost, "/cases", &citizen, map[string]any{"category": "outros", "description": "poste sem luz", "address": "Rua B, 2", "latitude": "12,5"}, http.StatusCreated},
		{"funcionário não cria", http.MethodPost, "/cases", &employee, map[string]any{"category": "OUTROS", "description": "x", "address": "y"}, http.StatusForbidden},
		{"criação sem campos", http.MethodPost, "/cases", &citizen, map[string]any{"category": "OUTROS"}, http.StatusBadRequest},
		{"dono lê", http.MethodGet, "/cases/" + caseID.String(), &citizen, nil, http.StatusOK},
		{"não dono é barrado", http.MethodGet, "/cases/" + caseID.String(), &stranger, nil, http.StatusForbidden},
		{"id malformado", http.MethodGet, "/cases/abc", &admin, nil, http.StatusBadRequest},
		{"patch do admin", http.MethodPatch, "/cases/" + caseID.String(), &admin, map[string]any{"status": "em_andamento", "message": "equipe a caminho"}, http.StatusOK},
		{"patch concluída sem foto", http.MethodPatch, "/cases/" + caseID.String(), &admin, map[string]any{"status": "CONCLUIDA"}, http.StatusBadRequest},
		{"patch vazio", http.MethodPatch, "/cases/" + caseID.String(), &admin, map[string]any{}, http.StatusBadRequest},
		{"delete do cidadão", http.MethodDelete, "/cases/" + caseID.String(), &citizen, nil, http.StatusForbidden},
		{"delete do admin", http.MethodDelete, "/cases/" + caseID.String(), &admin, nil, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewHandler(NewService(newRepo()), resolver)

			req := httptest.NewRequest(tc.method, tc.path, requestBody(tc.body))
			if tc.actor != nil {
				req = req.WithContext(httpmiddleware.WithClaims(req.Context(), claimsFor(*tc.actor)))
			}
			rec := httptest.NewRecorder()

			r := chi.NewRouter()
			handler.RegisterRoutes(r)
			r.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d got %d (%s)", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCaseHandlerErrorShape(t *testing.T) {
	resolver := &stubResolver{actors: map[string]policy.Actor{}}
	handler := NewHandler(NewService(&stubRepo{}), resolver)

	req := httptest.NewRequest(http.MethodGet, "/cases", nil)
	rec := httptest.NewRecorder()

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	r.ServeHTTP(rec, req)

	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("resposta não é JSON: %v", err)
	}
	if payload["error"] == "" {
		t.Fatalf("erro deveria vir em {\"error\": ...}: %s", rec.Body.String())
	}
}

func requestBody(body any) *bytes.Buffer {
	if body == nil {
		return bytes.NewBuffer(nil)
	}
	b, _ := json.Marshal(body)
	return bytes.NewBuffer(b)
}
