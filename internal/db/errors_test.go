package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "votes_pkey"}
	fk := &pgconn.PgError{Code: "23503"}

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"direto", dup, true},
		{"embrulhado", fmt.Errorf("inserir voto: %w", dup), true},
		{"fk", fk, false},
		{"generico", errors.New("falhou"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err); got != tc.want {
				t.Fatalf("expected %v got %v", tc.want, got)
			}
		})
	}
}
