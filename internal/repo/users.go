package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries provê acesso às contas de usuário.
type Queries struct {
	pool *pgxpool.Pool
}

// New cria o conjunto de queries sobre o pool informado.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

const userColumns = "id, name, email, role, password_hash, created_at"

// GetUserByID busca conta pelo identificador.
func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

// GetUserByEmail busca conta pelo e-mail normalizado.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

// CreateUser insere conta nova. Violação do índice único de e-mail vira ErrConflict.
func (q *Queries) CreateUser(ctx context.Context, name, email, role, passwordHash string) (User, error) {
	row := q.pool.QueryRow(ctx, `
        INSERT INTO users (name, email, role, password_hash)
        VALUES ($1, $2, $3, $4)
        RETURNING `+userColumns,
		strings.TrimSpace(name),
		strings.ToLower(strings.TrimSpace(email)),
		role,
		passwordHash,
	)

	user, err := scanUser(row)
	if err != nil {
		if IsUniqueViolation(err) {
			return User{}, ErrConflict
		}
		return User{}, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}
