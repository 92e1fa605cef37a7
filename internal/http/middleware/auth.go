package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaozabele/reclamacidade/internal/auth"
)

type contextKey string

const (
	ContextKeySubject contextKey = "subject"
	ContextKeyRoles   contextKey = "roles"
	ContextKeyCity    contextKey = "city"
)

// Auth valida JWT de acesso e injeta subject e papéis no contexto.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			claims, err := jwtManager.ParseAndValidate(strings.TrimSpace(parts[1]))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "token inválido")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyRoles, claims.Roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject recupera subject do contexto.
func GetSubject(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeySubject).(string)
	return val
}

// SubjectID devolve o subject já convertido para UUID.
func SubjectID(ctx context.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(GetSubject(ctx))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// GetRoles recupera roles do contexto.
func GetRoles(ctx context.Context) []string {
	val, _ := ctx.Value(ContextKeyRoles).([]string)
	return val
}

// HasRole informa se algum papel do token confere.
func HasRole(ctx context.Context, roles ...string) bool {
	for _, have := range GetRoles(ctx) {
		for _, want := range roles {
			if strings.EqualFold(strings.TrimSpace(have), want) {
				return true
			}
		}
	}
	return false
}

// RequireRoles garante que o token possua pelo menos um dos papéis informados.
func RequireRoles(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HasRole(r.Context(), required...) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito a "+strings.ToLower(strings.Join(required, ", ")))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
