package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Notifier entrega eventos a um canal externo.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, events []Event) error
}

// Dispatcher distribui eventos para os canais configurados sem bloquear o chamador.
// Falhas de entrega são apenas registradas em log.
type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
	logger    zerolog.Logger
	wg        sync.WaitGroup
}

func NewDispatcher(logger zerolog.Logger, timeout time.Duration, notifiers ...Notifier) *Dispatcher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &Dispatcher{notifiers: active, timeout: timeout, logger: logger.With().Str("component", "notify").Logger()}
}

// Emit dispara a entrega em segundo plano.
func (d *Dispatcher) Emit(ctx context.Context, events ...Event) {
	if d == nil || len(events) == 0 || len(d.notifiers) == 0 {
		return
	}
	base := context.WithoutCancel(ctx)
	for _, n := range d.notifiers {
		d.wg.Add(1)
		go func(n Notifier) {
			defer d.wg.Done()
			nctx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			if err := n.Notify(nctx, events); err != nil {
				d.logger.Warn().Err(err).Str("channel", n.Name()).Int("events", len(events)).Msg("notify: falha na entrega")
			}
		}(n)
	}
}

// Wait aguarda entregas pendentes. Usado no desligamento e em testes.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
