package notify

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifica o tipo de notificação disparada pelo engajamento.
type Kind string

const (
	KindBadgeEarned       Kind = "badge_earned"
	KindLevelUp           Kind = "level_up"
	KindComplaintResolved Kind = "complaint_resolved"
)

// Event é o payload entregue a todos os canais.
type Event struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	Kind        Kind           `json:"kind"`
	ComplaintID *uuid.UUID     `json:"complaint_id,omitempty"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Payload     map[string]any `json:"payload,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// NewEvent preenche ID e horário do evento.
func NewEvent(userID uuid.UUID, kind Kind, title, message string, payload map[string]any, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		UserID:     userID,
		Kind:       kind,
		Title:      title,
		Message:    message,
		Payload:    payload,
		OccurredAt: at.UTC(),
	}
}
