// Package storage integra o upload de fotos dos chamados. O upload em
// si acontece direto do cliente para o Cloudinary; o servidor apenas
// assina os parâmetros para que o upload seja aceito.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUnavailable indica backend de upload não configurado.
var ErrUnavailable = errors.New("serviço de upload não configurado")

// Signature carrega os parâmetros assinados que o cliente envia ao
// provedor de upload.
type Signature struct {
	CloudName string `json:"cloudName"`
	APIKey    string `json:"apiKey"`
	Timestamp int64  `json:"timestamp"`
	Folder    string `json:"folder"`
	Signature string `json:"signature"`
}

// Signer produz assinaturas de upload escopadas por ator.
type Signer interface {
	SignUpload(ctx context.Context, actorID uuid.UUID) (Signature, error)
}
