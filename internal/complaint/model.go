package complaint

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status acompanha o ciclo de atendimento da reclamação.
type Status string

const (
	StatusPending   Status = "pending"
	StatusResponded Status = "responded"
	StatusResolved  Status = "resolved"
)

// ErrInvalidStatus indica status fora do ciclo conhecido.
var ErrInvalidStatus = errors.New("status de reclamação inválido")

// ParseStatus valida o status recebido de fora.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusResponded, StatusResolved:
		return s, nil
	}
	return "", ErrInvalidStatus
}

// Complaint traz os campos da reclamação que o engajamento precisa.
type Complaint struct {
	ID         uuid.UUID  `json:"id"`
	OwnerID    uuid.UUID  `json:"owner_id"`
	City       string     `json:"city"`
	Category   string     `json:"category"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Transition calcula o novo resolved_at para uma troca de status.
// A data só é definida ao entrar em resolved e é limpa ao sair.
func (c Complaint) Transition(next Status, now time.Time) (resolvedAt *time.Time, enteredResolved bool) {
	if next != StatusResolved {
		return nil, false
	}
	if c.Status == StatusResolved && c.ResolvedAt != nil {
		return c.ResolvedAt, false
	}
	ts := now.UTC()
	return &ts, true
}
