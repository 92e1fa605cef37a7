package engagement

import (
	"fmt"
	"strings"
)

// Action identifica a origem de um lançamento de pontos.
type Action string

const (
	ActionComplaintCreated  Action = "complaint_created"
	ActionVoteCast          Action = "vote_cast"
	ActionVoteRetracted     Action = "vote_retracted"
	ActionComplaintResolved Action = "complaint_resolved"
	ActionManualAdjustment  Action = "manual_adjustment"
)

type actionRule struct {
	delta int
	fixed bool
}

// pointsPolicy é a tabela de pontuação; ações fora dela não lançam pontos.
var pointsPolicy = map[Action]actionRule{
	ActionComplaintCreated:  {delta: 10, fixed: true},
	ActionVoteCast:          {delta: 2, fixed: true},
	ActionVoteRetracted:     {delta: -2, fixed: true},
	ActionComplaintResolved: {delta: 20, fixed: true},
	ActionManualAdjustment:  {},
}

// ParseAction aceita apenas ações da tabela de pontuação.
func ParseAction(raw string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := pointsPolicy[a]; !ok {
		return "", fmt.Errorf("%w: ação %q desconhecida", ErrInvalidInput, raw)
	}
	return a, nil
}

// Delta devolve a pontuação fixa da ação. Ajustes manuais não têm valor fixo.
func (a Action) Delta() (int, bool) {
	rule, ok := pointsPolicy[a]
	if !ok || !rule.fixed {
		return 0, false
	}
	return rule.delta, true
}

// validateDelta confere o valor informado contra a tabela.
func (a Action) validateDelta(delta int) error {
	rule, ok := pointsPolicy[a]
	switch {
	case !ok:
		return fmt.Errorf("%w: ação %q desconhecida", ErrInvalidInput, a)
	case rule.fixed && delta != rule.delta:
		return fmt.Errorf("%w: ação %s vale %d pontos", ErrInvalidInput, a, rule.delta)
	case !rule.fixed && delta == 0:
		return fmt.Errorf("%w: ajuste sem pontos", ErrInvalidInput)
	}
	return nil
}
