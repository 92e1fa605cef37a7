package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/reclamacidade/internal/util"
)

// periodBounds devolve o intervalo [início do mês, início do mês seguinte)
// no fuso configurado.
func (s *Service) periodBounds(month, year int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: mês %d", ErrInvalidInput, month)
	}
	if year < 2000 || year > 9999 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: ano %d", ErrInvalidInput, year)
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.loc)
	return from, from.AddDate(0, 1, 0), nil
}

// RecomputeMonthlyRanking reconstrói o ranking da cidade no mês a partir do
// extrato de pontos. Cada chamada relê o período inteiro. Linhas de usuários
// que saíram do ranking permanecem como estavam.
func (s *Service) RecomputeMonthlyRanking(ctx context.Context, city string, month, year int) ([]RankingEntry, error) {
	city = util.NormalizeCity(city)
	if city == "" {
		return nil, fmt.Errorf("%w: cidade obrigatória", ErrInvalidInput)
	}
	from, to, err := s.periodBounds(month, year)
	if err != nil {
		return nil, err
	}

	var ranked []RankingEntry
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		sums, err := tx.SumPeriodPoints(ctx, city, from, to)
		if err != nil {
			return err
		}
		ranked = DenseRank(sums)
		now := s.now().UTC()
		for i := range ranked {
			ranked[i].City = city
			ranked[i].Month = month
			ranked[i].Year = year
			if err := tx.UpsertRanking(ctx, ranked[i], now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, city, month, year); err != nil {
			s.logger.Warn().Err(err).Str("city", city).Msg("ranking: falha ao invalidar cache")
		}
	}
	s.logger.Info().
		Str("city", city).
		Int("month", month).
		Int("year", year).
		Int("users", len(ranked)).
		Msg("ranking_recomputed")
	return ranked, nil
}

// MonthlyRanking lê o último ranking calculado, passando pelo cache.
func (s *Service) MonthlyRanking(ctx context.Context, city string, month, year, limit int) ([]RankingEntry, error) {
	city = util.NormalizeCity(city)
	if city == "" {
		return nil, fmt.Errorf("%w: cidade obrigatória", ErrInvalidInput)
	}
	if _, _, err := s.periodBounds(month, year); err != nil {
		return nil, err
	}

	entries, ok := []RankingEntry(nil), false
	if s.cache != nil {
		entries, ok = s.cache.Load(ctx, city, month, year)
	}
	if !ok {
		err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
			var err error
			entries, err = tx.ListRanking(ctx, city, month, year, 0)
			return err
		})
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Store(ctx, city, month, year, entries)
		}
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// UserRanking devolve a posição do usuário no ranking da sua cidade.
func (s *Service) UserRanking(ctx context.Context, userID uuid.UUID, month, year int) (RankingEntry, error) {
	if _, _, err := s.periodBounds(month, year); err != nil {
		return RankingEntry{}, err
	}
	var entry RankingEntry
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		u, err := s.loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		entry, err = tx.GetRanking(ctx, u.City, userID, month, year)
		return err
	})
	return entry, err
}
