package engagement

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

const profileHistoryLimit = 10

// Profile monta o painel do cidadão: saldo, progresso, conquistas, posição
// no ranking do mês corrente e últimos lançamentos.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (Profile, error) {
	month, year := s.CurrentPeriod()
	var p Profile
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		u, err := s.loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		acc, err := tx.GetAccount(ctx, userID)
		if err != nil {
			return err
		}
		badges, err := tx.ListUserBadges(ctx, userID)
		if err != nil {
			return err
		}
		history, err := tx.RecentHistory(ctx, userID, profileHistoryLimit)
		if err != nil {
			return err
		}
		p = Profile{
			UserID:   userID,
			City:     u.City,
			Account:  acc,
			Progress: ProgressFor(acc.TotalPoints),
			Badges:   badges,
			History:  history,
		}
		rank, err := tx.GetRanking(ctx, u.City, userID, month, year)
		switch {
		case err == nil:
			p.Ranking = &rank
		case !errors.Is(err, ErrNotFound):
			return err
		}
		return nil
	})
	return p, err
}
