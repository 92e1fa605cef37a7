package engagement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/reclamacidade/internal/complaint"
	"github.com/gestaozabele/reclamacidade/internal/identity"
	"github.com/gestaozabele/reclamacidade/internal/notify"
)

// Store abre uma transação por ação; erro em fn desfaz tudo.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx reúne as leituras e escritas feitas dentro de uma ação.
type Tx interface {
	GetUser(ctx context.Context, id uuid.UUID) (identity.User, error)
	GetComplaint(ctx context.Context, id uuid.UUID) (complaint.Complaint, error)
	LockComplaint(ctx context.Context, id uuid.UUID) (complaint.Complaint, error)
	SetComplaintStatus(ctx context.Context, id uuid.UUID, status complaint.Status, resolvedAt *time.Time) error
	CountComplaints(ctx context.Context, ownerID uuid.UUID) (int, error)
	CountResolvedComplaints(ctx context.Context, ownerID uuid.UUID) (int, error)

	// DeleteVote informa se havia voto para remover.
	DeleteVote(ctx context.Context, userID, complaintID uuid.UUID) (bool, error)
	// InsertVote devolve ErrDuplicate se outro pedido gravou o voto antes.
	InsertVote(ctx context.Context, userID, complaintID uuid.UUID, at time.Time) error
	CountVotes(ctx context.Context, complaintID uuid.UUID) (int, error)
	CountUserVotes(ctx context.Context, userID uuid.UUID) (int, error)

	// LockAccount cria a conta se preciso e a bloqueia até o fim da transação.
	LockAccount(ctx context.Context, userID uuid.UUID) (Account, error)
	GetAccount(ctx context.Context, userID uuid.UUID) (Account, error)
	SaveAccount(ctx context.Context, acc Account) error
	AppendHistory(ctx context.Context, entry HistoryEntry) error
	ComplaintAwarded(ctx context.Context, complaintID uuid.UUID, action Action) (bool, error)
	RecentHistory(ctx context.Context, userID uuid.UUID, limit int) ([]HistoryEntry, error)

	ListBadges(ctx context.Context, category BadgeCategory) ([]Badge, error)
	UpsertBadge(ctx context.Context, b Badge) (Badge, error)
	HasBadge(ctx context.Context, userID, badgeID uuid.UUID) (bool, error)
	// InsertUserBadge devolve false quando o par já existia.
	InsertUserBadge(ctx context.Context, userID, badgeID uuid.UUID, at time.Time) (bool, error)
	ListUserBadges(ctx context.Context, userID uuid.UUID) ([]UserBadge, error)

	SumPeriodPoints(ctx context.Context, city string, from, to time.Time) ([]RankingEntry, error)
	UpsertRanking(ctx context.Context, entry RankingEntry, at time.Time) error
	ListRanking(ctx context.Context, city string, month, year, limit int) ([]RankingEntry, error)
	GetRanking(ctx context.Context, city string, userID uuid.UUID, month, year int) (RankingEntry, error)
}

// RankingCache guarda leituras do ranking mensal.
type RankingCache interface {
	Load(ctx context.Context, city string, month, year int) ([]RankingEntry, bool)
	Store(ctx context.Context, city string, month, year int, entries []RankingEntry)
	Invalidate(ctx context.Context, city string, month, year int) error
}

// Emitter recebe eventos após o commit, sem retorno de entrega.
type Emitter interface {
	Emit(ctx context.Context, events ...notify.Event)
}
