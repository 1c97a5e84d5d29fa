package cases

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/resolveai/api/internal/policy"
)

var (
	ErrNotFound        = errors.New("ocorrência não encontrada")
	ErrInvalidCategory = errors.New("categoria inválida")
	ErrMissingFields   = errors.New("campos obrigatórios ausentes (category, description, address)")
	ErrNoChanges       = errors.New("nada para atualizar")
	ErrPhotoRequired   = errors.New("conclusão exige foto da resolução")
	ErrPhotoNotAllowed = errors.New("início de andamento não aceita foto")
)

// Status da ocorrência. A máquina de estados é permissiva: qualquer
// escritor autorizado pode definir qualquer status; as únicas restrições
// são as regras de foto aplicadas no PATCH.
type Status string

const (
	StatusRecebida              Status = "RECEBIDA"
	StatusEmAndamento           Status = "EM_ANDAMENTO"
	StatusAguardandoAtualizacao Status = "AGUARDANDO_ATUALIZACAO"
	StatusConcluida             Status = "CONCLUIDA"
)

var validStatuses = map[Status]struct{}{
	StatusRecebida:              {},
	StatusEmAndamento:           {},
	StatusAguardandoAtualizacao: {},
	StatusConcluida:             {},
}

// NormalizeStatus padroniza entrada do cliente em maiúsculas.
func NormalizeStatus(raw string) Status {
	return Status(strings.ToUpper(strings.TrimSpace(raw)))
}

// IsValidStatus indica se o status pertence ao conjunto fixo.
func IsValidStatus(s Status) bool {
	_, ok := validStatuses[s]
	return ok
}

// Tipos de foto: REPORT é anexada pelo cidadão na abertura; UPDATE chega
// junto de um PATCH de funcionário/admin.
const (
	PhotoKindReport = "REPORT"
	PhotoKindUpdate = "UPDATE"
)

// Case é a ocorrência registrada pelo cidadão.
type Case struct {
	ID          uuid.UUID       `json:"id"`
	Protocol    string          `json:"protocol"`
	Title       string          `json:"title"`
	Category    policy.Category `json:"category"`
	Status      Status          `json:"status"`
	Description string          `json:"description"`
	Address     string          `json:"address"`
	Latitude    *float64        `json:"latitude,omitempty"`
	Longitude   *float64        `json:"longitude,omitempty"`
	OwnerID     *uuid.UUID      `json:"userId,omitempty"`
	Owner       *CaseOwner      `json:"user,omitempty"`
	Photos      []CasePhoto     `json:"photos"`
	Events      []CaseEvent     `json:"events,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CaseOwner resume o cidadão que abriu a ocorrência, para exibição.
type CaseOwner struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// CasePhoto é uma foto anexada à ocorrência.
type CasePhoto struct {
	ID        uuid.UUID `json:"id"`
	CaseID    uuid.UUID `json:"case_id"`
	URL       string    `json:"url"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// CaseEvent é a trilha de auditoria, imutável: um registro por PATCH,
// mesmo quando o status não muda. authorID e employeeID são mutuamente
// exclusivos.
type CaseEvent struct {
	ID         uuid.UUID      `json:"id"`
	CaseID     uuid.UUID      `json:"case_id"`
	Status     Status         `json:"status"`
	Message    *string        `json:"message,omitempty"`
	PhotoURL   *string        `json:"photoUrl,omitempty"`
	AuthorID   *uuid.UUID     `json:"authorId,omitempty"`
	EmployeeID *uuid.UUID     `json:"employeeId,omitempty"`
	Author     *EventAuthor   `json:"author,omitempty"`
	Employee   *EventEmployee `json:"employee,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// EventAuthor resume cidadão/admin autor do evento.
type EventAuthor struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// EventEmployee resume o funcionário autor do evento.
type EventEmployee struct {
	ID           uuid.UUID `json:"id"`
	EmployeeCode int       `json:"employeeCode"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
}

// CreateInput encapsula abertura de ocorrência.
type CreateInput struct {
	Category    policy.Category
	Description string
	Address     string
	Latitude    *float64
	Longitude   *float64
	PhotoURL    *string
}

// PatchInput encapsula atualização por funcionário/admin.
// Categoria não aparece aqui: é imutável após a criação.
type PatchInput struct {
	Status      *Status
	Description *string
	Message     string
	PhotoURL    *string
}

// Filter limita a listagem por categorias e/ou dono.
type Filter struct {
	Categories []policy.Category
	OwnerID    *uuid.UUID
	Limit      int
}
