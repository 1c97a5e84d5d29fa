package employees

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resolveai/api/internal/repo"
)

// Repository descreve o acesso a dados de funcionários.
type Repository interface {
	Create(ctx context.Context, e Employee) (Employee, error)
	GetByID(ctx context.Context, id uuid.UUID) (Employee, error)
	GetByCode(ctx context.Context, code int) (Employee, error)
	CPFExists(ctx context.Context, cpf string) (bool, error)
	CodeExists(ctx context.Context, code int) (bool, error)
	List(ctx context.Context) ([]Employee, error)
	ToggleActive(ctx context.Context, id uuid.UUID) (Employee, error)
}

// PGRepository implementa Repository sobre Postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const employeeColumns = "id, employee_code, name, cpf, role, is_active, password_hash, created_at"

// Create insere funcionário novo. As constraints únicas de CPF e código
// são a palavra final: violação vira o erro de conflito correspondente.
func (r *PGRepository) Create(ctx context.Context, e Employee) (Employee, error) {
	row := r.pool.QueryRow(ctx, `
        INSERT INTO employees (employee_code, name, cpf, role, is_active, password_hash)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+employeeColumns,
		e.EmployeeCode,
		strings.TrimSpace(e.Name),
		e.CPF,
		e.Role,
		e.IsActive,
		e.PasswordHash,
	)

	created, err := scanEmployee(row)
	if err != nil {
		if repo.IsUniqueViolation(err) {
			if strings.Contains(err.Error(), "cpf") {
				return Employee{}, ErrCPFTaken
			}
			return Employee{}, ErrCodeTaken
		}
		return Employee{}, err
	}
	return created, nil
}

// GetByID busca funcionário pelo identificador.
func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (Employee, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = $1", id)
	return scanEmployee(row)
}

// GetByCode busca funcionário pelo código de acesso.
func (r *PGRepository) GetByCode(ctx context.Context, code int) (Employee, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE employee_code = $1", code)
	return scanEmployee(row)
}

// CPFExists é pré-check de unicidade (a constraint decide na inserção).
func (r *PGRepository) CPFExists(ctx context.Context, cpf string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM employees WHERE cpf = $1)", cpf).Scan(&exists)
	return exists, err
}

// CodeExists é pré-check de unicidade do código.
func (r *PGRepository) CodeExists(ctx context.Context, code int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM employees WHERE employee_code = $1)", code).Scan(&exists)
	return exists, err
}

// List devolve todos os funcionários, mais recentes primeiro.
func (r *PGRepository) List(ctx context.Context) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+employeeColumns+" FROM employees ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// ToggleActive inverte a flag de ativo e devolve o registro atualizado.
func (r *PGRepository) ToggleActive(ctx context.Context, id uuid.UUID) (Employee, error) {
	row := r.pool.QueryRow(ctx, `
        UPDATE employees SET is_active = NOT is_active WHERE id = $1
        RETURNING `+employeeColumns, id)
	return scanEmployee(row)
}

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	if err := row.Scan(&e.ID, &e.EmployeeCode, &e.Name, &e.CPF, &e.Role, &e.IsActive, &e.PasswordHash, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	return e, nil
}
