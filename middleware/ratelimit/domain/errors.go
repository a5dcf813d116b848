package domain

import "errors"

var (
	// ErrInvalidRule é retornado na construção/carga de uma regra com limit <= 0,
	// janela <= 0 ou método não suportado. É fatal para a carga de configuração.
	ErrInvalidRule = errors.New("invalid rate limit rule")

	// ErrInvalidSubject é retornado quando o identificador do sujeito está vazio.
	ErrInvalidSubject = errors.New("invalid rate limit subject")

	// ErrDuplicateRule indica duas regras com o mesmo método + path.
	ErrDuplicateRule = errors.New("duplicate rate limit rule")

	// ErrInvalidThresholds indica limiares de classificação fora de ordem.
	ErrInvalidThresholds = errors.New("invalid classification thresholds")
)

func IsInvalidRule(err error) bool {
	return errors.Is(err, ErrInvalidRule)
}

func IsInvalidSubject(err error) bool {
	return errors.Is(err, ErrInvalidSubject)
}
