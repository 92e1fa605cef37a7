package engagement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Account é o saldo de pontos do usuário.
type Account struct {
	UserID        uuid.UUID `json:"user_id"`
	CurrentPoints int       `json:"current_points"`
	TotalPoints   int       `json:"total_points"`
	Level         int       `json:"level"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HistoryEntry é uma linha do extrato de pontos; nunca é alterada.
type HistoryEntry struct {
	ID          int64      `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Delta       int        `json:"delta"`
	Action      Action     `json:"action"`
	ComplaintID *uuid.UUID `json:"complaint_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// BadgeCategory agrupa conquistas do catálogo.
type BadgeCategory string

const (
	CategoryLevel    BadgeCategory = "level"
	CategoryActivity BadgeCategory = "activity"
	CategorySpecial  BadgeCategory = "special"
)

// Metric é o contador comparado pelas conquistas de atividade.
type Metric string

const (
	MetricComplaints Metric = "complaints"
	MetricVotes      Metric = "votes"
	MetricResolved   Metric = "resolved"
)

var knownMetrics = map[Metric]bool{MetricComplaints: true, MetricVotes: true, MetricResolved: true}

// Badge é uma entrada do catálogo de conquistas.
type Badge struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Category    BadgeCategory `json:"category"`
	Metric      Metric        `json:"metric,omitempty"`
	Requirement *int          `json:"requirement,omitempty"`
	Active      bool          `json:"active"`
}

// UserBadge registra quando o usuário conquistou o badge.
type UserBadge struct {
	Badge    Badge     `json:"badge"`
	EarnedAt time.Time `json:"earned_at"`
}

// TriggerType define qual contador dispara a verificação.
type TriggerType string

const (
	TriggerLevel    TriggerType = "level"
	TriggerActivity TriggerType = "activity"
)

// Trigger é o gatilho de CheckAndAwardBadges.
type Trigger struct {
	Type   TriggerType `json:"type"`
	Metric Metric      `json:"metric,omitempty"`
	Value  int         `json:"value"`
}

// LevelTrigger monta gatilho de nível.
func LevelTrigger(level int) Trigger {
	return Trigger{Type: TriggerLevel, Value: level}
}

// ActivityTrigger monta gatilho de atividade.
func ActivityTrigger(metric Metric, value int) Trigger {
	return Trigger{Type: TriggerActivity, Metric: metric, Value: value}
}

func (t Trigger) validate() error {
	switch t.Type {
	case TriggerLevel:
		if t.Value < 1 {
			return fmt.Errorf("%w: nível deve ser positivo", ErrInvalidInput)
		}
	case TriggerActivity:
		if !knownMetrics[t.Metric] {
			return fmt.Errorf("%w: métrica %q desconhecida", ErrInvalidInput, t.Metric)
		}
		if t.Value < 0 {
			return fmt.Errorf("%w: contador negativo", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: gatilho %q desconhecido", ErrInvalidInput, t.Type)
	}
	return nil
}

func (t Trigger) category() BadgeCategory {
	if t.Type == TriggerLevel {
		return CategoryLevel
	}
	return CategoryActivity
}

// RankingEntry é uma linha do ranking mensal da cidade.
type RankingEntry struct {
	City     string    `json:"city"`
	UserID   uuid.UUID `json:"user_id"`
	Month    int       `json:"month"`
	Year     int       `json:"year"`
	Points   int       `json:"points"`
	Position int       `json:"rank_position"`
}

// VoteResult é o retorno de CastVote.
type VoteResult struct {
	Voted     bool         `json:"voted"`
	VoteCount int          `json:"vote_count"`
	Points    PointsResult `json:"points"`
}

// PointsResult é o retorno de AddPoints. AlreadyAwarded marca lançamento
// de reclamação que já tinha sido feito.
type PointsResult struct {
	CurrentPoints  int     `json:"current_points"`
	TotalPoints    int     `json:"total_points"`
	Level          int     `json:"level"`
	LeveledUp      bool    `json:"leveled_up"`
	NewLevel       *int    `json:"new_level,omitempty"`
	Badges         []Badge `json:"badges,omitempty"`
	AlreadyAwarded bool    `json:"already_awarded,omitempty"`
}

// StatusChange é o retorno de ChangeComplaintStatus.
type StatusChange struct {
	ComplaintID uuid.UUID     `json:"complaint_id"`
	Status      string        `json:"status"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
	OwnerPoints *PointsResult `json:"owner_points,omitempty"`
	Badges      []Badge       `json:"badges,omitempty"`
}

// Profile agrega o painel de gamificação do cidadão.
type Profile struct {
	UserID   uuid.UUID      `json:"user_id"`
	City     string         `json:"city"`
	Account  Account        `json:"account"`
	Progress LevelProgress  `json:"level_progress"`
	Badges   []UserBadge    `json:"badges"`
	Ranking  *RankingEntry  `json:"ranking,omitempty"`
	History  []HistoryEntry `json:"history"`
}
