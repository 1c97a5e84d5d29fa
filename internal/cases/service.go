package cases

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/resolveai/api/internal/policy"
)

// Service reúne as regras de negócio das ocorrências: quem pode o quê
// (via policy) e a máquina de estados do PATCH com sua trilha de eventos.
type Service struct {
	repo        Repository
	newProtocol func() string
}

// NewService cria uma nova instância do serviço.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, newProtocol: generateProtocol}
}

// generateProtocol monta a referência humana única da ocorrência.
func generateProtocol() string {
	return fmt.Sprintf("EPF-%d-%d", time.Now().UnixMilli(), rand.IntN(1000))
}

// Create abre ocorrência em nome do cidadão (ou admin agindo como tal).
// Status inicial é sempre RECEBIDA e a ocorrência nasce sem eventos.
func (s *Service) Create(ctx context.Context, actor policy.Actor, input CreateInput) (*Case, error) {
	if !policy.CanCreate(actor) {
		return nil, policy.ErrForbidden
	}

	input.Description = strings.TrimSpace(input.Description)
	input.Address = strings.TrimSpace(input.Address)

	if input.Category == "" || input.Description == "" || input.Address == "" {
		return nil, ErrMissingFields
	}
	if !policy.IsValidCategory(input.Category) {
		return nil, ErrInvalidCategory
	}

	var photoURL *string
	if input.PhotoURL != nil {
		if url := strings.TrimSpace(*input.PhotoURL); url != "" {
			photoURL = &url
		}
	}

	return s.repo.CreateCase(ctx, CreateParams{
		Protocol:    s.newProtocol(),
		Title:       string(input.Category),
		Category:    input.Category,
		Status:      StatusRecebida,
		Description: input.Description,
		Address:     input.Address,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		OwnerID:     actor.ID,
		PhotoURL:    photoURL,
	})
}

// List devolve o acervo recortado pelo escopo do ator: admin vê tudo,
// funcionário vê as categorias do cargo, cidadão não lista o acervo.
func (s *Service) List(ctx context.Context, actor policy.Actor) ([]Case, error) {
	scope := policy.CanList(actor)
	if !scope.Allowed {
		return nil, policy.ErrForbidden
	}

	filter := Filter{Limit: 100}
	if !scope.All {
		filter.Categories = scope.Categories
	}
	return s.repo.ListCases(ctx, filter)
}

// ListMine devolve as ocorrências do próprio cidadão, sem recorte de categoria.
func (s *Service) ListMine(ctx context.Context, actor policy.Actor) ([]Case, error) {
	if actor.Kind != policy.KindCitizen && actor.Kind != policy.KindAdmin {
		return nil, policy.ErrForbidden
	}

	owner := actor.ID
	return s.repo.ListCases(ctx, Filter{OwnerID: &owner, Limit: 100})
}

// Get carrega ocorrência completa, sujeita à decisão de leitura.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*Case, error) {
	found, err := s.repo.GetCase(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanAccess(actor, found.Category, found.OwnerID).Read {
		return nil, policy.ErrForbidden
	}
	return found, nil
}

// Patch aplica uma atualização de funcionário/admin (ou do dono).
// Regras da máquina de estados:
//   - qualquer status pode ser definido a partir de qualquer status;
//   - CONCLUIDA exige foto no mesmo PATCH;
//   - EM_ANDAMENTO rejeita foto;
//   - categoria é imutável (nem aparece no input);
//   - todo PATCH bem-sucedido gera exatamente um CaseEvent, mesmo sem
//     mudança de status; foto informada vira também CasePhoto UPDATE.
func (s *Service) Patch(ctx context.Context, actor policy.Actor, id uuid.UUID, input PatchInput) (*Case, error) {
	meta, err := s.repo.GetCaseMeta(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanAccess(actor, meta.Category, meta.OwnerID).Write {
		return nil, policy.ErrForbidden
	}

	var nextStatus *Status
	if input.Status != nil && IsValidStatus(*input.Status) {
		nextStatus = input.Status
	}

	var nextDescription *string
	if input.Description != nil {
		if d := strings.TrimSpace(*input.Description); d != "" {
			nextDescription = &d
		}
	}

	message := strings.TrimSpace(input.Message)

	var photoURL *string
	if input.PhotoURL != nil {
		if url := strings.TrimSpace(*input.PhotoURL); url != "" {
			photoURL = &url
		}
	}

	if nextStatus == nil && nextDescription == nil && photoURL == nil && message == "" {
		return nil, ErrNoChanges
	}

	if nextStatus != nil {
		switch *nextStatus {
		case StatusConcluida:
			if photoURL == nil {
				return nil, ErrPhotoRequired
			}
		case StatusEmAndamento:
			if photoURL != nil {
				return nil, ErrPhotoNotAllowed
			}
		}
	}

	eventStatus := meta.Status
	if nextStatus != nil {
		eventStatus = *nextStatus
	}

	params := UpdateParams{
		ID:          id,
		Status:      nextStatus,
		Description: nextDescription,
		EventStatus: eventStatus,
		PhotoURL:    photoURL,
	}
	if message != "" {
		params.Message = &message
	}

	// autoria do evento: cidadão/admin vai em authorId, funcionário em
	// employeeId — nunca os dois.
	actorID := actor.ID
	if actor.Kind == policy.KindEmployee {
		params.EmployeeID = &actorID
	} else {
		params.AuthorID = &actorID
	}

	return s.repo.UpdateCase(ctx, params)
}

// Delete remove a ocorrência com cascata de eventos e fotos. Só admin.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	meta, err := s.repo.GetCaseMeta(ctx, id)
	if err != nil {
		return err
	}

	if !policy.CanAccess(actor, meta.Category, meta.OwnerID).Delete {
		return policy.ErrForbidden
	}
	return s.repo.DeleteCase(ctx, id)
}
