package engagement

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/gestaozabele/reclamacidade/internal/notify"
)

// CheckAndAwardBadges concede todas as conquistas cujo requisito o gatilho
// alcança e que o usuário ainda não tem. Chamadas repetidas não duplicam.
// Só gestores da cidade do usuário disparam a verificação.
func (s *Service) CheckAndAwardBadges(ctx context.Context, actorID, userID uuid.UUID, trigger Trigger) ([]Badge, error) {
	if err := trigger.validate(); err != nil {
		return nil, err
	}
	var awarded []Badge
	err := s.inTx(ctx, func(ctx context.Context, tx Tx, out *outbox) error {
		target, err := s.loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if _, err := s.manager(ctx, tx, actorID, target.City); err != nil {
			return err
		}
		awarded, err = s.awardBadges(ctx, tx, out, userID, trigger)
		return err
	})
	return awarded, err
}

// SyncBadges mede nível e contadores atuais do usuário e reavalia todo o
// catálogo, a pedido de um gestor da cidade do usuário.
func (s *Service) SyncBadges(ctx context.Context, actorID, userID uuid.UUID) ([]Badge, error) {
	var awarded []Badge
	err := s.inTx(ctx, func(ctx context.Context, tx Tx, out *outbox) error {
		awarded = nil
		target, err := s.loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if _, err := s.manager(ctx, tx, actorID, target.City); err != nil {
			return err
		}
		acc, err := tx.GetAccount(ctx, userID)
		if err != nil {
			return err
		}
		triggers := []Trigger{LevelTrigger(acc.Level)}
		for _, m := range []Metric{MetricComplaints, MetricVotes, MetricResolved} {
			n, err := s.measure(ctx, tx, userID, m)
			if err != nil {
				return err
			}
			triggers = append(triggers, ActivityTrigger(m, n))
		}
		for _, tr := range triggers {
			got, err := s.awardBadges(ctx, tx, out, userID, tr)
			if err != nil {
				return err
			}
			awarded = append(awarded, got...)
		}
		return nil
	})
	return awarded, err
}

func (s *Service) measure(ctx context.Context, tx Tx, userID uuid.UUID, metric Metric) (int, error) {
	switch metric {
	case MetricComplaints:
		return tx.CountComplaints(ctx, userID)
	case MetricVotes:
		return tx.CountUserVotes(ctx, userID)
	case MetricResolved:
		return tx.CountResolvedComplaints(ctx, userID)
	}
	return 0, fmt.Errorf("%w: métrica %q desconhecida", ErrInvalidInput, metric)
}

// awardActivity mede o contador e dispara o gatilho de atividade correspondente.
func (s *Service) awardActivity(ctx context.Context, tx Tx, out *outbox, userID uuid.UUID, metric Metric) ([]Badge, error) {
	n, err := s.measure(ctx, tx, userID, metric)
	if err != nil {
		return nil, err
	}
	return s.awardBadges(ctx, tx, out, userID, ActivityTrigger(metric, n))
}

// awardBadges percorre todos os requisitos <= valor do gatilho, de modo que
// saltos de vários níveis concedem cada limiar intermediário.
func (s *Service) awardBadges(ctx context.Context, tx Tx, out *outbox, userID uuid.UUID, trigger Trigger) ([]Badge, error) {
	catalog, err := tx.ListBadges(ctx, trigger.category())
	if err != nil {
		return nil, err
	}
	sort.SliceStable(catalog, func(i, j int) bool {
		return requirementOf(catalog[i]) < requirementOf(catalog[j])
	})

	now := s.now().UTC()
	var awarded []Badge
	for _, b := range catalog {
		if !b.Active || b.Requirement == nil || *b.Requirement > trigger.Value {
			continue
		}
		if trigger.Type == TriggerActivity && b.Metric != trigger.Metric {
			continue
		}
		held, err := tx.HasBadge(ctx, userID, b.ID)
		if err != nil {
			return nil, err
		}
		if held {
			continue
		}
		inserted, err := tx.InsertUserBadge(ctx, userID, b.ID, now)
		if err != nil {
			return nil, err
		}
		if !inserted {
			continue
		}
		awarded = append(awarded, b)
		s.logger.Info().Str("user_id", userID.String()).Str("badge", b.Name).Msg("badge_awarded")
		out.add(notify.NewEvent(userID, notify.KindBadgeEarned,
			"Nova conquista: "+b.Name, b.Description,
			map[string]any{"badge_id": b.ID.String(), "badge": b.Name, "icon": b.Icon}, now))
	}
	return awarded, nil
}

func requirementOf(b Badge) int {
	if b.Requirement == nil {
		return int(^uint(0) >> 1)
	}
	return *b.Requirement
}
