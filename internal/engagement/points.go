package engagement

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gestaozabele/reclamacidade/internal/complaint"
	"github.com/gestaozabele/reclamacidade/internal/notify"
)

// AddPoints lança delta no extrato do usuário e recalcula o nível.
// A ação precisa constar da tabela de pontuação e o delta deve bater com ela.
func (s *Service) AddPoints(ctx context.Context, userID uuid.UUID, delta int, action Action) (PointsResult, error) {
	if err := action.validateDelta(delta); err != nil {
		return PointsResult{}, err
	}
	var res PointsResult
	err := s.inTx(ctx, func(ctx context.Context, tx Tx, out *outbox) error {
		if _, err := s.loadUser(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		res, err = s.applyPoints(ctx, tx, out, userID, delta, action)
		return err
	})
	return res, err
}

// Award lança a pontuação fixa da ação.
func (s *Service) Award(ctx context.Context, userID uuid.UUID, action Action) (PointsResult, error) {
	delta, ok := action.Delta()
	if !ok {
		return PointsResult{}, fmt.Errorf("%w: ação %q sem pontuação fixa", ErrInvalidInput, action)
	}
	return s.AddPoints(ctx, userID, delta, action)
}

// AdjustPoints permite ao gestor creditar ou debitar pontos de cidadãos da sua cidade.
func (s *Service) AdjustPoints(ctx context.Context, actorID, userID uuid.UUID, delta int, reason string) (PointsResult, error) {
	if err := ActionManualAdjustment.validateDelta(delta); err != nil {
		return PointsResult{}, err
	}
	var res PointsResult
	err := s.inTx(ctx, func(ctx context.Context, tx Tx, out *outbox) error {
		target, err := s.loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if _, err := s.manager(ctx, tx, actorID, target.City); err != nil {
			return err
		}
		res, err = s.applyPoints(ctx, tx, out, userID, delta, ActionManualAdjustment)
		return err
	})
	if err == nil {
		s.logger.Info().
			Str("actor_id", actorID.String()).
			Str("user_id", userID.String()).
			Int("delta", delta).
			Str("reason", reason).
			Msg("ajuste manual de pontos")
	}
	return res, err
}

func (s *Service) applyPoints(ctx context.Context, tx Tx, out *outbox, userID uuid.UUID, delta int, action Action) (PointsResult, error) {
	return s.post(ctx, tx, out, HistoryEntry{UserID: userID, Delta: delta, Action: action})
}

// applyComplaintPoints lança pontos do autor vinculados à reclamação.
func (s *Service) applyComplaintPoints(ctx context.Context, tx Tx, out *outbox, c complaint.Complaint, action Action) (PointsResult, error) {
	delta, _ := action.Delta()
	cid := c.ID
	return s.post(ctx, tx, out, HistoryEntry{UserID: c.OwnerID, Delta: delta, Action: action, ComplaintID: &cid})
}

// post é o núcleo do extrato; roda dentro da transação do chamador.
// Deltas negativos só reduzem o saldo corrente: o total histórico, e por
// consequência o nível, nunca diminui.
func (s *Service) post(ctx context.Context, tx Tx, out *outbox, entry HistoryEntry) (PointsResult, error) {
	now := s.now().UTC()
	userID, delta := entry.UserID, entry.Delta

	acc, err := tx.LockAccount(ctx, userID)
	if err != nil {
		return PointsResult{}, err
	}

	entry.CreatedAt = now
	if err := tx.AppendHistory(ctx, entry); err != nil {
		return PointsResult{}, err
	}

	acc.CurrentPoints += delta
	if delta > 0 {
		acc.TotalPoints += delta
	}
	res := PointsResult{CurrentPoints: acc.CurrentPoints, TotalPoints: acc.TotalPoints}

	level := LevelFor(acc.TotalPoints)
	if level > acc.Level {
		acc.Level = level
		res.LeveledUp = true
		res.NewLevel = &level
	}
	res.Level = acc.Level
	acc.UpdatedAt = now

	if err := tx.SaveAccount(ctx, acc); err != nil {
		return PointsResult{}, err
	}

	s.logger.Debug().
		Str("user_id", userID.String()).
		Str("action", string(entry.Action)).
		Int("delta", delta).
		Int("total_points", acc.TotalPoints).
		Msg("points_added")

	if res.LeveledUp {
		s.logger.Info().Str("user_id", userID.String()).Int("level", level).Msg("level_up")
		out.add(notify.NewEvent(userID, notify.KindLevelUp,
			fmt.Sprintf("Você subiu para o nível %d", level),
			fmt.Sprintf("Parabéns! Seu total de %d pontos levou você ao nível %d.", acc.TotalPoints, level),
			map[string]any{"level": level, "total_points": acc.TotalPoints}, now))

		badges, err := s.awardBadges(ctx, tx, out, userID, LevelTrigger(level))
		if err != nil {
			return PointsResult{}, err
		}
		res.Badges = badges
	}
	return res, nil
}
