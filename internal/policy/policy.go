// Package policy concentra as decisões de autorização sobre ocorrências.
// Toda rota que toca ocorrência consulta este pacote em vez de rederivar
// booleanos por conta própria.
package policy

import (
	"errors"

	"github.com/google/uuid"
)

// ErrForbidden indica ausência de permissão.
var ErrForbidden = errors.New("acesso negado")

// Kind classifica o ator autenticado.
type Kind string

const (
	KindCitizen  Kind = "CIDADAO"
	KindEmployee Kind = "FUNCIONARIO"
	KindAdmin    Kind = "ADMIN"
)

// Actor descreve a identidade autenticada, normalizada por requisição.
// É derivado de um token verificado e nunca persistido.
type Actor struct {
	Kind          Kind
	ID            uuid.UUID
	CategoryScope []Category
}

// Decision responde o que o ator pode fazer com uma ocorrência específica.
type Decision struct {
	Read   bool
	Write  bool
	Delete bool
}

// ListScope descreve o recorte de listagem permitido ao ator.
type ListScope struct {
	Allowed    bool
	All        bool
	Categories []Category
}

func (a Actor) inScope(category Category) bool {
	for _, c := range a.CategoryScope {
		if c == category {
			return true
		}
	}
	return false
}

// CanAccess decide leitura/escrita/exclusão sobre uma ocorrência.
// ownerID é o cidadão que registrou a ocorrência (nil em registros legados).
func CanAccess(actor Actor, category Category, ownerID *uuid.UUID) Decision {
	switch actor.Kind {
	case KindAdmin:
		return Decision{Read: true, Write: true, Delete: true}
	case KindCitizen:
		owns := ownerID != nil && *ownerID == actor.ID
		return Decision{Read: owns, Write: owns}
	case KindEmployee:
		ok := actor.inScope(category)
		return Decision{Read: ok, Write: ok}
	}
	return Decision{}
}

// CanList decide o recorte da listagem geral de ocorrências.
// Cidadãos não listam o acervo; usam a listagem "minhas ocorrências".
func CanList(actor Actor) ListScope {
	switch actor.Kind {
	case KindAdmin:
		return ListScope{Allowed: true, All: true}
	case KindEmployee:
		if len(actor.CategoryScope) == 0 {
			return ListScope{}
		}
		if len(actor.CategoryScope) == len(AllCategories) {
			return ListScope{Allowed: true, All: true}
		}
		return ListScope{Allowed: true, Categories: actor.CategoryScope}
	}
	return ListScope{}
}

// CanCreate indica quem pode registrar ocorrência: cidadão ou admin
// agindo como cidadão. Funcionário nunca cria.
func CanCreate(actor Actor) bool {
	return actor.Kind == KindCitizen || actor.Kind == KindAdmin
}
