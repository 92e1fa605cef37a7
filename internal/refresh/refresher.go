package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gestaozabele/reclamacidade/internal/engagement"
)

// CityLister enumera as cidades com cidadãos ativos.
type CityLister interface {
	ListCities(ctx context.Context) ([]string, error)
}

// Recomputer é o recorte do motor usado pelo loop.
type Recomputer interface {
	RecomputeMonthlyRanking(ctx context.Context, city string, month, year int) ([]engagement.RankingEntry, error)
	CurrentPeriod() (month, year int)
}

// Refresher recalcula periodicamente o ranking mensal de cada cidade.
type Refresher struct {
	cities   CityLister
	engine   Recomputer
	interval time.Duration
	logger   zerolog.Logger

	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRefresher(cities CityLister, engine Recomputer, interval time.Duration, logger zerolog.Logger) *Refresher {
	return &Refresher{
		cities:   cities,
		engine:   engine,
		interval: interval,
		logger:   logger.With().Str("component", "ranking_refresh").Logger(),
		done:     make(chan struct{}),
	}
}

// Start inicia o loop; intervalo zero ou negativo não agenda nada.
// Pode ser chamado mais de uma vez.
func (r *Refresher) Start(parent context.Context) {
	if r.interval <= 0 {
		return
	}
	r.once.Do(func() {
		ctx, cancel := context.WithCancel(parent)
		r.cancel = cancel
		go r.runLoop(ctx)
	})
}

// Stop encerra o loop e espera a rodada em andamento.
func (r *Refresher) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

func (r *Refresher) runLoop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("refresh: loop iniciado")

	if err := r.RunOnce(ctx); err != nil {
		r.logger.Error().Err(err).Msg("refresh: primeira execução falhou")
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("refresh: loop encerrado")
			return
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error().Err(err).Msg("refresh: execução periódica falhou")
			}
		}
	}
}

// RunOnce recalcula o mês corrente e o anterior de todas as cidades. O mês
// anterior entra para fechar pontos lançados perto da virada.
// Falha numa cidade não interrompe as demais.
func (r *Refresher) RunOnce(ctx context.Context) error {
	cities, err := r.cities.ListCities(ctx)
	if err != nil {
		return fmt.Errorf("listar cidades: %w", err)
	}

	month, year := r.engine.CurrentPeriod()
	prevMonth, prevYear := previousPeriod(month, year)

	failed := 0
	for _, city := range cities {
		for _, p := range [][2]int{{prevMonth, prevYear}, {month, year}} {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := r.engine.RecomputeMonthlyRanking(ctx, city, p[0], p[1]); err != nil {
				failed++
				r.logger.Warn().Err(err).Str("city", city).Int("month", p[0]).Int("year", p[1]).Msg("refresh: cidade falhou")
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d recálculos falharam", failed)
	}
	return nil
}

func previousPeriod(month, year int) (int, int) {
	if month == 1 {
		return 12, year - 1
	}
	return month - 1, year
}
