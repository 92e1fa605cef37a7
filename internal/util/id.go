package util

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ParseID converte identificadores vindos de path ou payload.
func ParseID(raw, field string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, errors.New(field + " obrigatório")
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errors.New(field + " inválido")
	}
	return id, nil
}
