package engagement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestaozabele/reclamacidade/internal/identity"
	"github.com/gestaozabele/reclamacidade/internal/notify"
)

// Service é o motor de engajamento: votos, pontos, conquistas e ranking.
// Toda ação mutável roda numa única transação do Store; eventos só saem
// depois do commit.
type Service struct {
	store   Store
	cache   RankingCache
	emitter Emitter
	loc     *time.Location
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(store Store, cache RankingCache, emitter Emitter, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:   store,
		cache:   cache,
		emitter: emitter,
		loc:     loc,
		logger:  logger.With().Str("component", "engagement").Logger(),
		now:     time.Now,
	}
}

// WithClock substitui o relógio, usado em testes e reprocessamentos.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CurrentPeriod devolve mês e ano correntes no fuso do ranking.
func (s *Service) CurrentPeriod() (month, year int) {
	t := s.now().In(s.loc)
	return int(t.Month()), t.Year()
}

// outbox acumula eventos durante a transação.
type outbox struct {
	events []notify.Event
}

func (o *outbox) add(ev notify.Event) {
	o.events = append(o.events, ev)
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, tx Tx, out *outbox) error) error {
	var out outbox
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		out = outbox{}
		return fn(ctx, tx, &out)
	})
	if err != nil {
		return err
	}
	if s.emitter != nil && len(out.events) > 0 {
		s.emitter.Emit(ctx, out.events...)
	}
	return nil
}

func (s *Service) loadUser(ctx context.Context, tx Tx, id uuid.UUID) (identity.User, error) {
	u, err := tx.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return u, fmt.Errorf("usuário %s: %w", id, ErrNotFound)
		}
		return u, err
	}
	return u, nil
}

func (s *Service) activeUser(ctx context.Context, tx Tx, id uuid.UUID) (identity.User, error) {
	u, err := s.loadUser(ctx, tx, id)
	if err != nil {
		return u, err
	}
	if !u.Active {
		return u, ErrInactive
	}
	return u, nil
}

// manager garante gestor ativo; com city informada, exige a mesma cidade.
func (s *Service) manager(ctx context.Context, tx Tx, id uuid.UUID, city string) (identity.User, error) {
	u, err := s.activeUser(ctx, tx, id)
	if err != nil {
		return u, err
	}
	if !u.IsManager() {
		return u, ErrForbidden
	}
	if city != "" && u.City != city {
		return u, ErrForbidden
	}
	return u, nil
}
