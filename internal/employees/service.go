package employees

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/resolveai/api/internal/auth"
	"github.com/resolveai/api/internal/policy"
)

// Service reúne as regras de cadastro e gestão de funcionários.
type Service struct {
	repo Repository
}

// NewService cria uma nova instância do serviço.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// OnlyDigits remove tudo que não é dígito (CPF e código chegam formatados).
func OnlyDigits(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Register cadastra funcionário novo. O código é gerado no servidor;
// sugestão do cliente só é aceita com prefixo correto e sem colisão —
// colidiu, regenera em silêncio em vez de falhar o cadastro.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Employee, error) {
	name := strings.TrimSpace(input.Name)
	cpf := OnlyDigits(input.CPF)
	role := strings.ToUpper(strings.TrimSpace(input.Role))

	if name == "" || cpf == "" || role == "" || input.Password == "" || input.ConfirmPassword == "" {
		return Employee{}, ErrMissingFields
	}
	if len(cpf) != 11 {
		return Employee{}, ErrInvalidCPF
	}
	if !policy.IsValidEmployeeRole(role) {
		return Employee{}, ErrInvalidRole
	}
	if len(input.Password) < 6 {
		return Employee{}, ErrPasswordTooShort
	}
	if input.Password != input.ConfirmPassword {
		return Employee{}, ErrPasswordMismatch
	}

	// pré-check de CPF: melhora a mensagem, mas a constraint única é
	// quem resolve a corrida na inserção.
	taken, err := s.repo.CPFExists(ctx, cpf)
	if err != nil {
		return Employee{}, err
	}
	if taken {
		return Employee{}, ErrCPFTaken
	}

	code, err := s.pickCode(ctx, role, input.EmployeeCode)
	if err != nil {
		return Employee{}, err
	}

	hash, err := auth.Hash(input.Password)
	if err != nil {
		return Employee{}, err
	}

	return s.repo.Create(ctx, Employee{
		EmployeeCode: code,
		Name:         name,
		CPF:          cpf,
		Role:         role,
		IsActive:     true,
		PasswordHash: hash,
	})
}

func (s *Service) pickCode(ctx context.Context, role string, suggested *int) (int, error) {
	if suggested != nil {
		if !CodeMatchesRole(*suggested, role) {
			return 0, ErrBadCodePrefix
		}
		exists, err := s.repo.CodeExists(ctx, *suggested)
		if err != nil {
			return 0, err
		}
		if !exists {
			return *suggested, nil
		}
		// colisão com a sugestão: regenera sem falhar o cadastro
	}

	for i := 0; i < maxCodeAttempts; i++ {
		code, err := GenerateCode(role)
		if err != nil {
			return 0, err
		}
		exists, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			return 0, err
		}
		if !exists {
			return code, nil
		}
	}
	return 0, ErrCodeGenerationExhausted
}

// List devolve todos os funcionários para o painel admin.
func (s *Service) List(ctx context.Context) ([]Employee, error) {
	return s.repo.List(ctx)
}

// Toggle inverte a flag de ativo. Desativar é o que de fato corta o
// acesso do funcionário: tokens antigos deixam de resolver em ator.
func (s *Service) Toggle(ctx context.Context, id uuid.UUID) (Employee, error) {
	e, err := s.repo.ToggleActive(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	return e, nil
}
