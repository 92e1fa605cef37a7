package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier registra eventos no log estruturado.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) Notify(_ context.Context, events []Event) error {
	for _, ev := range events {
		l.logger.Info().
			Str("event_id", ev.ID.String()).
			Str("user_id", ev.UserID.String()).
			Str("kind", string(ev.Kind)).
			Str("title", ev.Title).
			Msg("notificação emitida")
	}
	return nil
}
