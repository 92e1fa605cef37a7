package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gestaozabele/reclamacidade/internal/db"
)

// ErrNotFound é retornado quando a notificação não pertence ao usuário.
var ErrNotFound = errors.New("notificação não encontrada")

// Notification é o registro persistido na caixa do cidadão.
type Notification struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	ComplaintID *uuid.UUID      `json:"complaint_id,omitempty"`
	Kind        Kind            `json:"kind"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	Payload     json.RawMessage `json:"payload"`
	Read        bool            `json:"read"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Inbox persiste eventos na tabela notifications.
type Inbox struct {
	q db.Querier
}

func NewInbox(q db.Querier) *Inbox {
	return &Inbox{q: q}
}

func (i *Inbox) Name() string { return "inbox" }

func (i *Inbox) Notify(ctx context.Context, events []Event) error {
	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return err
		}
		if ev.Payload == nil {
			payload = []byte(`{}`)
		}
		if _, err := i.q.Exec(ctx, `
			INSERT INTO notifications (id, user_id, complaint_id, kind, title, message, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING
		`, ev.ID, ev.UserID, ev.ComplaintID, string(ev.Kind), ev.Title, ev.Message, payload, ev.OccurredAt); err != nil {
			return err
		}
	}
	return nil
}

// List devolve as notificações mais recentes do usuário.
func (i *Inbox) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := i.q.Query(ctx, `
		SELECT id, user_id, complaint_id, kind, title, message, payload, is_read, created_at
		FROM notifications
		WHERE user_id = $1 AND ($2 = false OR is_read = false)
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		var kind string
		if err := rows.Scan(&n.ID, &n.UserID, &n.ComplaintID, &kind, &n.Title, &n.Message, &n.Payload, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Kind = Kind(kind)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead marca a notificação como lida se pertencer ao usuário.
func (i *Inbox) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	var found uuid.UUID
	err := i.q.QueryRow(ctx, `
		UPDATE notifications SET is_read = true
		WHERE id = $1 AND user_id = $2
		RETURNING id
	`, id, userID).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
