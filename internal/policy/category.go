package policy

import "strings"

// Category particiona ocorrências por tipo de problema urbano.
type Category string

const (
	CategoryIluminacaoPublica  Category = "ILUMINACAO_PUBLICA"
	CategoryBuracoNaVia        Category = "BURACO_NA_VIA"
	CategoryColetaDeLixo       Category = "COLETA_DE_LIXO"
	CategoryObstrucaoDeCalcada Category = "OBSTRUCAO_DE_CALCADA"
	CategoryVazamentoDeAgua    Category = "VAZAMENTO_DE_AGUA"
	CategoryOutros             Category = "OUTROS"
)

// RoleAdministrativo é o cargo coringa: enxerga todas as categorias,
// mas continua sem poder de exclusão.
const RoleAdministrativo = "ADMINISTRATIVO"

// AllCategories lista o conjunto fixo de categorias em ordem estável.
var AllCategories = []Category{
	CategoryIluminacaoPublica,
	CategoryBuracoNaVia,
	CategoryColetaDeLixo,
	CategoryObstrucaoDeCalcada,
	CategoryVazamentoDeAgua,
	CategoryOutros,
}

var validCategories = func() map[Category]struct{} {
	m := make(map[Category]struct{}, len(AllCategories))
	for _, c := range AllCategories {
		m[c] = struct{}{}
	}
	return m
}()

// NormalizeCategory padroniza entrada vinda do cliente.
func NormalizeCategory(raw string) Category {
	return Category(strings.ToUpper(strings.TrimSpace(raw)))
}

// IsValidCategory indica se a categoria pertence ao conjunto fixo.
func IsValidCategory(c Category) bool {
	_, ok := validCategories[c]
	return ok
}

// IsValidEmployeeRole aceita categorias e o cargo administrativo.
func IsValidEmployeeRole(role string) bool {
	if role == RoleAdministrativo {
		return true
	}
	return IsValidCategory(Category(role))
}

// ScopeForRole resolve o cargo do funcionário para seu escopo de categorias.
func ScopeForRole(role string) []Category {
	if role == RoleAdministrativo {
		scope := make([]Category, len(AllCategories))
		copy(scope, AllCategories)
		return scope
	}
	c := Category(role)
	if !IsValidCategory(c) {
		return nil
	}
	return []Category{c}
}
