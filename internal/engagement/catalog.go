package engagement

import (
	"context"

	"github.com/google/uuid"
)

// badgeNamespace gera IDs estáveis a partir do nome do badge.
var badgeNamespace = uuid.MustParse("8d2f6c1e-3b4a-4e5f-9a6b-7c8d9e0f1a2b")

func catalogBadge(name, description, icon string, category BadgeCategory, metric Metric, requirement int) Badge {
	req := requirement
	return Badge{
		ID:          uuid.NewSHA1(badgeNamespace, []byte(name)),
		Name:        name,
		Description: description,
		Icon:        icon,
		Category:    category,
		Metric:      metric,
		Requirement: &req,
		Active:      true,
	}
}

// DefaultCatalog devolve as conquistas padrão da plataforma.
func DefaultCatalog() []Badge {
	return []Badge{
		catalogBadge("Cidadão Iniciante", "Alcançou nível 5", "star", CategoryLevel, "", 5),
		catalogBadge("Cidadão Ativo", "Alcançou nível 10", "star-fill", CategoryLevel, "", 10),
		catalogBadge("Cidadão Engajado", "Alcançou nível 25", "award", CategoryLevel, "", 25),
		catalogBadge("Cidadão Exemplar", "Alcançou nível 50", "trophy", CategoryLevel, "", 50),
		catalogBadge("Guardião da Cidade", "Alcançou nível 100", "crown", CategoryLevel, "", 100),
		catalogBadge("Primeiro Passo", "Fez sua primeira reclamação", "star", CategoryActivity, MetricComplaints, 1),
		catalogBadge("Engajado", "Fez 5 reclamações", "chat-dots", CategoryActivity, MetricComplaints, 5),
		catalogBadge("Colaborador", "Votou em 10 reclamações", "hand-thumbs-up", CategoryActivity, MetricVotes, 10),
		catalogBadge("Persistente", "Teve 3 reclamações resolvidas", "check-circle", CategoryActivity, MetricResolved, 3),
	}
}

// SeedBadges grava o catálogo padrão; pode rodar várias vezes.
func (s *Service) SeedBadges(ctx context.Context) ([]Badge, error) {
	var saved []Badge
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		saved = saved[:0]
		for _, b := range DefaultCatalog() {
			got, err := tx.UpsertBadge(ctx, b)
			if err != nil {
				return err
			}
			saved = append(saved, got)
		}
		return nil
	})
	if err == nil {
		s.logger.Info().Int("badges", len(saved)).Msg("catálogo de conquistas sincronizado")
	}
	return saved, err
}
