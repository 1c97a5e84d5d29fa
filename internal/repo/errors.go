package repo

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound é retornado quando nenhum registro é encontrado.
	ErrNotFound = errors.New("registro não encontrado")
	// ErrConflict indica violação de constraint única no banco.
	ErrConflict = errors.New("registro duplicado")
)

// IsUniqueViolation detecta violação de unicidade vinda do Postgres.
// Os pré-checks de existência são otimização; a constraint é quem decide.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
