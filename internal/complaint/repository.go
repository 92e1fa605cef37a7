package complaint

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gestaozabele/reclamacidade/internal/db"
	"github.com/gestaozabele/reclamacidade/internal/util"
)

// ErrNotFound é retornado quando a reclamação não existe.
var ErrNotFound = errors.New("reclamação não encontrada")

const selectComplaint = `SELECT id, owner_id, city, category, status, created_at, resolved_at FROM complaints`

// Get lê a reclamação sem bloqueio.
func Get(ctx context.Context, q db.Querier, id uuid.UUID) (Complaint, error) {
	return scanComplaint(q.QueryRow(ctx, selectComplaint+` WHERE id = $1`, id))
}

// Lock lê a reclamação com FOR UPDATE, serializando trocas de status concorrentes.
func Lock(ctx context.Context, q db.Querier, id uuid.UUID) (Complaint, error) {
	return scanComplaint(q.QueryRow(ctx, selectComplaint+` WHERE id = $1 FOR UPDATE`, id))
}

// SetStatus grava status e resolved_at juntos para manter a constraint da tabela.
func SetStatus(ctx context.Context, q db.Querier, id uuid.UUID, status Status, resolvedAt *time.Time) error {
	tag, err := q.Exec(ctx, `
		UPDATE complaints
		SET status = $2, resolved_at = $3, updated_at = now()
		WHERE id = $1
	`, id, string(status), resolvedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByOwner conta reclamações abertas pelo usuário.
func CountByOwner(ctx context.Context, q db.Querier, ownerID uuid.UUID) (int, error) {
	var n int
	err := q.QueryRow(ctx, `SELECT count(*) FROM complaints WHERE owner_id = $1`, ownerID).Scan(&n)
	return n, err
}

// CountResolvedByOwner conta reclamações do usuário já resolvidas.
func CountResolvedByOwner(ctx context.Context, q db.Querier, ownerID uuid.UUID) (int, error) {
	var n int
	err := q.QueryRow(ctx, `SELECT count(*) FROM complaints WHERE owner_id = $1 AND status = 'resolved'`, ownerID).Scan(&n)
	return n, err
}

func scanComplaint(row pgx.Row) (Complaint, error) {
	var c Complaint
	var status string
	if err := row.Scan(&c.ID, &c.OwnerID, &c.City, &c.Category, &status, &c.CreatedAt, &c.ResolvedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Complaint{}, ErrNotFound
		}
		return Complaint{}, err
	}
	c.Status = Status(status)
	c.City = util.NormalizeCity(c.City)
	return c, nil
}
