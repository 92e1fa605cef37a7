package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gestaozabele/reclamacidade/internal/db"
	"github.com/gestaozabele/reclamacidade/internal/util"
)

// ErrNotFound é retornado quando o usuário não existe.
var ErrNotFound = errors.New("usuário não encontrado")

const selectUser = `SELECT id, nome, cpf, city, role, active, created_at FROM users`

// Repository encapsula leituras do cadastro de usuários.
type Repository struct {
	q db.Querier
}

func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// Get busca usuário pelo ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return Get(ctx, r.q, id)
}

// FindByCPF busca usuário pelo documento, com ou sem máscara.
func (r *Repository) FindByCPF(ctx context.Context, cpf string) (User, error) {
	if err := util.ValidateCPF(cpf); err != nil {
		return User{}, err
	}
	return scanUser(r.q.QueryRow(ctx, selectUser+` WHERE cpf = $1`, util.OnlyDigits(cpf)))
}

// Get executa a leitura dentro de qualquer Querier, inclusive transações.
func Get(ctx context.Context, q db.Querier, id uuid.UUID) (User, error) {
	return scanUser(q.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Nome, &u.CPF, &u.City, &role, &u.Active, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.Role = Role(role)
	u.City = util.NormalizeCity(u.City)
	return u, nil
}

// ListCities devolve as cidades com ao menos um usuário ativo.
func (r *Repository) ListCities(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT DISTINCT city FROM users WHERE active ORDER BY city`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var raw []string
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, err
		}
		raw = append(raw, city)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return uniqueCities(raw), nil
}

// uniqueCities normaliza e remove repetições mantendo a ordem de chegada.
func uniqueCities(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, city := range raw {
		city = util.NormalizeCity(city)
		if city == "" || seen[city] {
			continue
		}
		seen[city] = true
		out = append(out, city)
	}
	return out
}
