package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/reclamacidade/internal/identity"
)

// UserLookup resolve o cadastro do usuário autenticado.
type UserLookup interface {
	Get(ctx context.Context, id uuid.UUID) (identity.User, error)
}

// CityScope carrega o cadastro do subject, recusa contas inativas e injeta a
// cidade no contexto. Tokens de serviço passam sem cadastro.
func CityScope(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if HasRole(r.Context(), "SERVICE") {
				next.ServeHTTP(w, r)
				return
			}

			subject, ok := SubjectID(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "AUTH", "subject inválido")
				return
			}

			user, err := users.Get(r.Context(), subject)
			switch {
			case errors.Is(err, identity.ErrNotFound):
				writeError(w, http.StatusUnauthorized, "AUTH", "usuário não cadastrado")
				return
			case err != nil:
				log.Error().Err(err).Str("subject", subject.String()).Msg("scope: falha ao carregar usuário")
				writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno")
				return
			case !user.Active:
				writeError(w, http.StatusForbidden, "INACTIVE", "usuário inativo")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyCity, user.City)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCity retorna a cidade do usuário autenticado.
func GetCity(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyCity).(string)
	return val
}
