package employees

import (
	"errors"
	"math/rand/v2"

	"github.com/resolveai/api/internal/policy"
)

// ErrCodeGenerationExhausted indica que as tentativas de gerar código
// único se esgotaram (colisões sucessivas).
var ErrCodeGenerationExhausted = errors.New("não foi possível gerar um código único, tente novamente")

// maxCodeAttempts limita as tentativas de geração antes de desistir.
const maxCodeAttempts = 12

// rolePrefix mapeia cargo para o primeiro dígito do código do funcionário.
var rolePrefix = map[string]int{
	string(policy.CategoryIluminacaoPublica):  1,
	string(policy.CategoryBuracoNaVia):        2,
	string(policy.CategoryColetaDeLixo):       3,
	string(policy.CategoryObstrucaoDeCalcada): 4,
	string(policy.CategoryVazamentoDeAgua):    5,
	policy.RoleAdministrativo:                 8,
	string(policy.CategoryOutros):             9,
}

// GenerateCode monta código de 7 dígitos: prefixo do cargo + 6 aleatórios.
func GenerateCode(role string) (int, error) {
	prefix, ok := rolePrefix[role]
	if !ok {
		return 0, ErrInvalidRole
	}
	randomPart := 100000 + rand.IntN(900000)
	return prefix*1000000 + randomPart, nil
}

// CodeMatchesRole confere se o primeiro dígito do código bate com o cargo.
func CodeMatchesRole(code int, role string) bool {
	prefix, ok := rolePrefix[role]
	if !ok {
		return false
	}
	first := code
	for first >= 10 {
		first /= 10
	}
	return first == prefix && code >= 1000000 && code <= 9999999
}
