package identity

import (
	"time"

	"github.com/google/uuid"
)

// Role define o papel do usuário na plataforma.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleManager Role = "manager"
)

// User é a visão do cadastro que o engajamento consulta.
type User struct {
	ID        uuid.UUID `json:"id"`
	Nome      string    `json:"nome"`
	CPF       *string   `json:"-"`
	City      string    `json:"city"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// IsManager informa se o usuário administra reclamações da cidade.
func (u User) IsManager() bool {
	return u.Role == RoleManager
}
