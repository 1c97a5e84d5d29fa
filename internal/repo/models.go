package repo

import (
	"time"

	"github.com/google/uuid"
)

// Papéis de conta de usuário (cidadão e administrador).
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User representa conta de cidadão ou administrador.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}
