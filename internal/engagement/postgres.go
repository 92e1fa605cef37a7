package engagement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/reclamacidade/internal/complaint"
	"github.com/gestaozabele/reclamacidade/internal/db"
	"github.com/gestaozabele/reclamacidade/internal/identity"
)

// PostgresStore implementa Store sobre o pool compartilhado.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return db.WithTx(ctx, s.pool, func(pctx context.Context, tx pgx.Tx) error {
		return fn(pctx, &pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetUser(ctx context.Context, id uuid.UUID) (identity.User, error) {
	u, err := identity.Get(ctx, t.tx, id)
	if errors.Is(err, identity.ErrNotFound) {
		return u, ErrNotFound
	}
	return u, err
}

func (t *pgTx) GetComplaint(ctx context.Context, id uuid.UUID) (complaint.Complaint, error) {
	return mapComplaintErr(complaint.Get(ctx, t.tx, id))
}

func (t *pgTx) LockComplaint(ctx context.Context, id uuid.UUID) (complaint.Complaint, error) {
	return mapComplaintErr(complaint.Lock(ctx, t.tx, id))
}

func mapComplaintErr(c complaint.Complaint, err error) (complaint.Complaint, error) {
	if errors.Is(err, complaint.ErrNotFound) {
		return c, ErrNotFound
	}
	return c, err
}

func (t *pgTx) SetComplaintStatus(ctx context.Context, id uuid.UUID, status complaint.Status, resolvedAt *time.Time) error {
	err := complaint.SetStatus(ctx, t.tx, id, status, resolvedAt)
	if errors.Is(err, complaint.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (t *pgTx) CountComplaints(ctx context.Context, ownerID uuid.UUID) (int, error) {
	return complaint.CountByOwner(ctx, t.tx, ownerID)
}

func (t *pgTx) CountResolvedComplaints(ctx context.Context, ownerID uuid.UUID) (int, error) {
	return complaint.CountResolvedByOwner(ctx, t.tx, ownerID)
}

func (t *pgTx) DeleteVote(ctx context.Context, userID, complaintID uuid.UUID) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM votes WHERE user_id = $1 AND complaint_id = $2`, userID, complaintID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// InsertVote roda num savepoint: a violação de unicidade não pode abortar a
// transação, que ainda precisa repetir a operação como remoção.
func (t *pgTx) InsertVote(ctx context.Context, userID, complaintID uuid.UUID, at time.Time) error {
	err := db.WithSavepoint(ctx, t.tx, func(sp pgx.Tx) error {
		_, err := sp.Exec(ctx, `
			INSERT INTO votes (user_id, complaint_id, created_at)
			VALUES ($1, $2, $3)
		`, userID, complaintID, at)
		return err
	})
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (t *pgTx) CountVotes(ctx context.Context, complaintID uuid.UUID) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT count(*) FROM votes WHERE complaint_id = $1`, complaintID).Scan(&n)
	return n, err
}

func (t *pgTx) CountUserVotes(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT count(*) FROM votes WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

const selectAccount = `SELECT user_id, current_points, total_points, level, updated_at FROM points_accounts`

func (t *pgTx) LockAccount(ctx context.Context, userID uuid.UUID) (Account, error) {
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO points_accounts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return Account{}, err
	}
	return scanAccount(t.tx.QueryRow(ctx, selectAccount+` WHERE user_id = $1 FOR UPDATE`, userID))
}

func (t *pgTx) GetAccount(ctx context.Context, userID uuid.UUID) (Account, error) {
	acc, err := scanAccount(t.tx.QueryRow(ctx, selectAccount+` WHERE user_id = $1`, userID))
	if errors.Is(err, ErrNotFound) {
		return Account{UserID: userID, Level: 1}, nil
	}
	return acc, err
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	if err := row.Scan(&a.UserID, &a.CurrentPoints, &a.TotalPoints, &a.Level, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (t *pgTx) SaveAccount(ctx context.Context, acc Account) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE points_accounts
		SET current_points = $2, total_points = $3, level = $4, updated_at = $5
		WHERE user_id = $1
	`, acc.UserID, acc.CurrentPoints, acc.TotalPoints, acc.Level, acc.UpdatedAt)
	return err
}

func (t *pgTx) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO point_history (user_id, delta, action, complaint_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.UserID, entry.Delta, string(entry.Action), entry.ComplaintID, entry.CreatedAt)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("lançamento %s já registrado: %w", entry.Action, ErrDuplicate)
	}
	return err
}

func (t *pgTx) ComplaintAwarded(ctx context.Context, complaintID uuid.UUID, action Action) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM point_history WHERE complaint_id = $1 AND action = $2)
	`, complaintID, string(action)).Scan(&exists)
	return exists, err
}

func (t *pgTx) RecentHistory(ctx context.Context, userID uuid.UUID, limit int) ([]HistoryEntry, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, user_id, delta, action, complaint_id, created_at
		FROM point_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var h HistoryEntry
		var action string
		if err := rows.Scan(&h.ID, &h.UserID, &h.Delta, &action, &h.ComplaintID, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.Action = Action(action)
		out = append(out, h)
	}
	return out, rows.Err()
}

const badgeColumns = `b.id, b.name, b.description, b.icon, b.category, b.metric, b.requirement, b.active`

func (t *pgTx) ListBadges(ctx context.Context, category BadgeCategory) ([]Badge, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+badgeColumns+`
		FROM badges b
		WHERE b.active AND ($1 = '' OR b.category = $1)
		ORDER BY b.requirement NULLS LAST, b.name
	`, string(category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (t *pgTx) UpsertBadge(ctx context.Context, b Badge) (Badge, error) {
	var metric *string
	if b.Metric != "" {
		m := string(b.Metric)
		metric = &m
	}
	row := t.tx.QueryRow(ctx, `
		INSERT INTO badges AS b (id, name, description, icon, category, metric, requirement, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			icon = EXCLUDED.icon,
			category = EXCLUDED.category,
			metric = EXCLUDED.metric,
			requirement = EXCLUDED.requirement,
			active = EXCLUDED.active
		RETURNING `+badgeColumns,
		b.ID, b.Name, b.Description, b.Icon, string(b.Category), metric, b.Requirement, b.Active)
	return scanBadge(row)
}

func scanBadge(row pgx.Row) (Badge, error) {
	var b Badge
	var category string
	var metric *string
	if err := row.Scan(&b.ID, &b.Name, &b.Description, &b.Icon, &category, &metric, &b.Requirement, &b.Active); err != nil {
		return Badge{}, err
	}
	b.Category = BadgeCategory(category)
	if metric != nil {
		b.Metric = Metric(*metric)
	}
	return b, nil
}

func (t *pgTx) HasBadge(ctx context.Context, userID, badgeID uuid.UUID) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM user_badges WHERE user_id = $1 AND badge_id = $2)
	`, userID, badgeID).Scan(&exists)
	return exists, err
}

func (t *pgTx) InsertUserBadge(ctx context.Context, userID, badgeID uuid.UUID, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO user_badges (user_id, badge_id, earned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT user_badges_unique DO NOTHING
	`, userID, badgeID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) ListUserBadges(ctx context.Context, userID uuid.UUID) ([]UserBadge, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+badgeColumns+`, ub.earned_at
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = $1
		ORDER BY ub.earned_at, b.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]UserBadge, 0)
	for rows.Next() {
		var ub UserBadge
		var category string
		var metric *string
		b := &ub.Badge
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.Icon, &category, &metric, &b.Requirement, &b.Active, &ub.EarnedAt); err != nil {
			return nil, err
		}
		b.Category = BadgeCategory(category)
		if metric != nil {
			b.Metric = Metric(*metric)
		}
		out = append(out, ub)
	}
	return out, rows.Err()
}

func (t *pgTx) SumPeriodPoints(ctx context.Context, city string, from, to time.Time) ([]RankingEntry, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT ph.user_id, SUM(ph.delta)
		FROM point_history ph
		JOIN users u ON u.id = ph.user_id
		WHERE u.city = $1 AND ph.created_at >= $2 AND ph.created_at < $3
		GROUP BY ph.user_id
		ORDER BY 2 DESC, ph.user_id
	`, city, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RankingEntry
	for rows.Next() {
		e := RankingEntry{City: city}
		if err := rows.Scan(&e.UserID, &e.Points); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *pgTx) UpsertRanking(ctx context.Context, e RankingEntry, at time.Time) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO city_rankings (city, user_id, month, year, points, rank_position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT ON CONSTRAINT city_rankings_unique DO UPDATE SET
			points = EXCLUDED.points,
			rank_position = EXCLUDED.rank_position,
			updated_at = EXCLUDED.updated_at
	`, e.City, e.UserID, e.Month, e.Year, e.Points, e.Position, at)
	return err
}

func (t *pgTx) ListRanking(ctx context.Context, city string, month, year, limit int) ([]RankingEntry, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := t.tx.Query(ctx, `
		SELECT city, user_id, month, year, points, rank_position
		FROM city_rankings
		WHERE city = $1 AND month = $2 AND year = $3
		ORDER BY rank_position, user_id
		LIMIT $4
	`, city, month, year, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RankingEntry, 0)
	for rows.Next() {
		var e RankingEntry
		if err := rows.Scan(&e.City, &e.UserID, &e.Month, &e.Year, &e.Points, &e.Position); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *pgTx) GetRanking(ctx context.Context, city string, userID uuid.UUID, month, year int) (RankingEntry, error) {
	var e RankingEntry
	err := t.tx.QueryRow(ctx, `
		SELECT city, user_id, month, year, points, rank_position
		FROM city_rankings
		WHERE city = $1 AND user_id = $2 AND month = $3 AND year = $4
	`, city, userID, month, year).Scan(&e.City, &e.UserID, &e.Month, &e.Year, &e.Points, &e.Position)
	if errors.Is(err, pgx.ErrNoRows) {
		return RankingEntry{}, ErrNotFound
	}
	return e, err
}
