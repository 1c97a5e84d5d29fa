package cases

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/resolveai/api/internal/policy"
)

type stubRepo struct {
	meta       CaseMeta
	metaErr    error
	kase       *Case
	cases      []Case
	lastCreate CreateParams
	lastUpdate *UpdateParams
	lastFilter Filter
	deleted    []uuid.UUID
	updates    int
}

func (s *stubRepo) CreateCase(ctx context.Context, params CreateParams) (*Case, error) {
	s.lastCreate = params
	return &Case{ID: uuid.New(), Protocol: params.Protocol, Category: params.Category, Status: params.Status}, nil
}

func (s *stubRepo) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	if s.kase == nil {
		return nil, ErrNotFound
	}
	return s.kase, nil
}

func (s *stubRepo) GetCaseMeta(ctx context.Context, id uuid.UUID) (CaseMeta, error) {
	if s.metaErr != nil {
		return CaseMeta{}, s.metaErr
	}
	return s.meta, nil
}

func (s *stubRepo) ListCases(ctx context.Context, filter Filter) ([]Case, error) {
	s.lastFilter = filter
	return s.cases, nil
}

func (s *stubRepo) UpdateCase(ctx context.Context, params UpdateParams) (*Case, error) {
	s.lastUpdate = &params
	s.updates++
	return &Case{ID: params.ID, Status: params.EventStatus}, nil
}

func (s *stubRepo) DeleteCase(ctx context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func newTestService(repo *stubRepo) *Service {
	svc := NewService(repo)
	svc.newProtocol = func() string { return "EPF-1700000000000-42" }
	return svc
}

func strPtr(s string) *string { return &s }

func statusPtr(s Status) *Status { return &s }

func TestCreateValidations(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo)
	citizen := policy.Actor{Kind: policy.KindCitizen, ID: uuid.New()}

	tests := []struct {
		name  string
		actor policy.Actor
		input CreateInput
		want  error
	}{
		{"funcionário não cria", policy.Actor{Kind: policy.KindEmployee, ID: uuid.New()}, CreateInput{Category: policy.CategoryOutros, Description: "x", Address: "y"}, policy.ErrForbidden},
		{"faltando descrição", citizen, CreateInput{Category: policy.CategoryOutros, Address: "y"}, ErrMissingFields},
		{"faltando endereço", citizen, CreateInput{Category: policy.CategoryOutros, Description: "x"}, ErrMissingFields},
		{"categoria inválida", citizen, CreateInput{Category: "ASFALTO", Description: "x", Address: "y"}, ErrInvalidCategory},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tc.actor, tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("esperava %v, veio %v", tc.want, err)
			}
		})
	}
}

func TestCreateSetsDefaults(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo)
	citizen := policy.Actor{Kind: policy.KindCitizen, ID: uuid.New()}

	created, err := svc.Create(context.Background(), citizen, CreateInput{
		Category:    policy.CategoryBuracoNaVia,
		Description: "  buraco fundo  ",
		Address:     "Rua A, 10",
		PhotoURL:    strPtr("  https://cdn/x.jpg "),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if created.Status != StatusRecebida {
		t.Fatalf("status inicial deveria ser RECEBIDA: %s", created.Status)
	}
	if repo.lastCreate.Protocol != "EPF-1700000000000-42" {
		t.Fatalf("protocolo inesperado: %s", repo.lastCreate.Protocol)
	}
	if repo.lastCreate.Description != "buraco fundo" {
		t.Fatalf("descrição sem trim: %q", repo.lastCreate.Description)
	}
	if repo.lastCreate.OwnerID != citizen.ID {
		t.Fatalf("dono deveria ser o ator")
	}
	if repo.lastCreate.PhotoURL == nil || *repo.lastCreate.PhotoURL != "https://cdn/x.jpg" {
		t.Fatalf("foto inicial sem trim: %v", repo.lastCreate.PhotoURL)
	}
}

func TestListScopes(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo)

	if _, err := svc.List(context.Background(), policy.Actor{Kind: policy.KindCitizen, ID: uuid.New()}); !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("cidadão não lista o acervo: %v", err)
	}

	if _, err := svc.List(context.Background(), policy.Actor{Kind: policy.KindAdmin, ID: uuid.New()}); err != nil {
		t.Fatalf("admin lista: %v", err)
	}
	if repo.lastFilter.Categories != nil || repo.lastFilter.Limit != 100 {
		t.Fatalf("admin deveria listar sem recorte com teto 100: %+v", repo.lastFilter)
	}

	employee := policy.Actor{
		Kind:          policy.KindEmployee,
		ID:            uuid.New(),
		CategoryScope: []policy.Category{policy.CategoryColetaDeLixo},
	}
	if _, err := svc.List(context.Background(), employee); err != nil {
		t.Fatalf("funcionário lista: %v", err)
	}
	if len(repo.lastFilter.Categories) != 1 || repo.lastFilter.Categories[0] != policy.CategoryColetaDeLixo {
		t.Fatalf("recorte do funcionário errado: %+v", repo.lastFilter)
	}
}

func TestListMine(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo)
	citizen := policy.Actor{Kind: policy.KindCitizen, ID: uuid.New()}

	if _, err := svc.ListMine(context.Background(), citizen); err != nil {
		t.Fatalf("minhas ocorrências: %v", err)
	}
	if repo.lastFilter.OwnerID == nil || *repo.lastFilter.OwnerID != citizen.ID {
		t.Fatalf("filtro de dono errado: %+v", repo.lastFilter)
	}

	employee := policy.Actor{Kind: policy.KindEmployee, ID: uuid.New()}
	if _, err := svc.ListMine(context.Background(), employee); !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("funcionário não tem listagem própria: %v", err)
	}
}

func TestGetEnforcesRead(t *testing.T) {
	owner := uuid.New()
	repo := &stubRepo{kase: &Case{ID: uuid.New(), Category: policy.CategoryOutros, OwnerID: &owner}}
	svc := newTestService(repo)

	if _, err := svc.Get(context.Background(), policy.Actor{Kind: policy.KindCitizen, ID: owner}, repo.kase.ID); err != nil {
		t.Fatalf("dono lê: %v", err)
	}
	if _, err := svc.Get(context.Background(), policy.Actor{Kind: policy.KindCitizen, ID: uuid.New()}, repo.kase.ID); !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("não dono deveria ser barrado: %v", err)
	}
}

func TestPatchStatusRules(t *testing.T) {
	caseID := uuid.New()
	admin := policy.Actor{Kind: policy.KindAdmin, ID: uuid.New()}

	tests := []struct {
		name  string
		input PatchInput
		want  error
	}{
		{"concluída sem foto", PatchInput{Status: statusPtr(StatusConcluida)}, ErrPhotoRequired},
		{"em andamento com foto", PatchInput{Status: statusPtr(StatusEmAndamento), PhotoURL: strPtr("https://cdn/p.jpg")}, ErrPhotoNotAllowed},
		{"patch vazio", PatchInput{}, ErrNoChanges},
		{"só espaços", PatchInput{Message: "   ", PhotoURL: strPtr("  ")}, ErrNoChanges},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubRepo{meta: CaseMeta{ID: caseID, Category: policy.CategoryOutros, Status: StatusRecebida}}
			svc := newTestService(repo)
			if _, err := svc.Patch(context.Background(), admin, caseID, tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("esperava %v, veio %v", tc.want, err)
			}
			if repo.updates != 0 {
				t.Fatalf("patch rejeitado não deveria tocar o repositório")
			}
		})
	}
}

func TestPatchIgnoresUnknownStatus(t *testing.T) {
	caseID := uuid.New()
	repo := &stubRepo{meta: CaseMeta{ID: caseID, Category: policy.CategoryOutros, Status: StatusEmAndamento}}
	svc := newTestService(repo)
	admin := policy.Actor{Kind: policy.KindAdmin, ID: uuid.New()}

	unknown := Status("QUALQUER_COISA")
	if _, err := svc.Patch(context.Background(), admin, caseID, PatchInput{Status: &unknown, Message: "segue"}); err != nil {
		t.Fatalf("status desconhecido é ignorado, não erro: %v", err)
	}

	if repo.lastUpdate.Status != nil {
		t.Fatalf("status não deveria mudar: %v", *repo.lastUpdate.Status)
	}
	if repo.lastUpdate.EventStatus != StatusEmAndamento {
		t.Fatalf("evento deveria carregar o status vigente: %s", repo.lastUpdate.EventStatus)
	}
}

func TestPatchEventAuthorship(t *testing.T) {
	caseID := uuid.New()
	owner := uuid.New()
	meta := CaseMeta{ID: caseID, Category: policy.CategoryOutros, Status: StatusRecebida, OwnerID: &owner}

	employee := policy.Actor{
		Kind:          policy.KindEmployee,
		ID:            uuid.New(),
		CategoryScope: []policy.Category{policy.CategoryOutros},
	}
	repo := &stubRepo{meta: meta}
	svc := newTestService(repo)
	if _, err := svc.Patch(context.Background(), employee, caseID, PatchInput{Message: "em análise"}); err != nil {
		t.Fatalf("patch do funcionário: %v", err)
	}
	if repo.lastUpdate.EmployeeID == nil || repo.lastUpdate.AuthorID != nil {
		t.Fatalf("evento de funcionário vai em employeeId: %+v", repo.lastUpdate)
	}

	repo = &stubRepo{meta: meta}
	svc = newTestService(repo)
	citizen := policy.Actor{Kind: policy.KindCitizen, ID: owner}
	if _, err := svc.Patch(context.Background(), citizen, caseID, PatchInput{Message: "ainda aberto"}); err != nil {
		t.Fatalf("patch do dono: %v", err)
	}
	if repo.lastUpdate.AuthorID == nil || repo.lastUpdate.EmployeeID != nil {
		t.Fatalf("evento de cidadão vai em authorId: %+v", repo.lastUpdate)
	}
	if repo.updates != 1 {
		t.Fatalf("todo patch gera exatamente um evento: %d", repo.updates)
	}
}

func TestPatchScopeEnforcement(t *testing.T) {
	caseID := uuid.New()
	repo := &stubRepo{meta: CaseMeta{ID: caseID, Category: policy.CategoryVazamentoDeAgua, Status: StatusRecebida}}
	svc := newTestService(repo)

	outOfScope := policy.Actor{
		Kind:          policy.KindEmployee,
		ID:            uuid.New(),
		CategoryScope: []policy.Category{policy.CategoryIluminacaoPublica},
	}
	if _, err := svc.Patch(context.Background(), outOfScope, caseID, PatchInput{Message: "oi"}); !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("fora do escopo deveria ser barrado: %v", err)
	}
}

func TestDeleteOnlyAdmin(t *testing.T) {
	caseID := uuid.New()
	owner := uuid.New()
	meta := CaseMeta{ID: caseID, Category: policy.CategoryOutros, Status: StatusRecebida, OwnerID: &owner}

	repo := &stubRepo{meta: meta}
	svc := newTestService(repo)

	if err := svc.Delete(context.Background(), policy.Actor{Kind: policy.KindCitizen, ID: owner}, caseID); !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("dono não exclui: %v", err)
	}
	if err := svc.Delete(context.Background(), policy.Actor{Kind: policy.KindEmployee, ID: uuid.New(), CategoryScope: policy.AllCategories}, caseID); !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("funcionário não exclui: %v", err)
	}
	if err := svc.Delete(context.Background(), policy.Actor{Kind: policy.KindAdmin, ID: uuid.New()}, caseID); err != nil {
		t.Fatalf("admin exclui: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != caseID {
		t.Fatalf("exclusão não chegou ao repositório: %+v", repo.deleted)
	}
}

func TestPatchNotFound(t *testing.T) {
	repo := &stubRepo{metaErr: ErrNotFound}
	svc := newTestService(repo)

	if _, err := svc.Patch(context.Background(), policy.Actor{Kind: policy.KindAdmin, ID: uuid.New()}, uuid.New(), PatchInput{Message: "oi"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("esperava ErrNotFound, veio %v", err)
	}
}
