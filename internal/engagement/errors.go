package engagement

import "errors"

var (
	// ErrNotFound cobre usuário, reclamação ou posição de ranking inexistentes.
	ErrNotFound = errors.New("registro não encontrado")
	// ErrInactive indica usuário desativado tentando agir.
	ErrInactive = errors.New("usuário inativo")
	// ErrDuplicate sinaliza corrida em chave única; tratado localmente.
	ErrDuplicate = errors.New("registro duplicado")
	// ErrForbidden indica ator sem papel ou cidade compatível.
	ErrForbidden = errors.New("operação não permitida")
	// ErrInvalidInput cobre ação, gatilho, mês ou ano inválidos.
	ErrInvalidInput = errors.New("entrada inválida")
)
