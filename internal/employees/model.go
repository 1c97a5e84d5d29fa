package employees

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("funcionário não encontrado")
	ErrMissingFields    = errors.New("dados incompletos")
	ErrInvalidCPF       = errors.New("CPF inválido (precisa ter 11 dígitos)")
	ErrInvalidRole      = errors.New("cargo inválido")
	ErrPasswordTooShort = errors.New("senha precisa ter no mínimo 6 caracteres")
	ErrPasswordMismatch = errors.New("as senhas não conferem")
	ErrCPFTaken         = errors.New("já existe funcionário com esse CPF")
	ErrCodeTaken        = errors.New("código de funcionário já está em uso")
	ErrBadCodePrefix    = errors.New("código inválido para o cargo selecionado")
)

// Employee representa conta de funcionário municipal. O cargo (Role)
// determina o escopo de categorias que ele atende.
type Employee struct {
	ID           uuid.UUID `json:"id"`
	EmployeeCode int       `json:"employeeCode"`
	Name         string    `json:"name"`
	CPF          string    `json:"cpf"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RegisterInput encapsula o cadastro feito pelo admin. EmployeeCode é
// sugestão opcional do cliente; o servidor prefere gerar o próprio.
type RegisterInput struct {
	Name            string
	CPF             string
	Role            string
	Password        string
	ConfirmPassword string
	EmployeeCode    *int
}
