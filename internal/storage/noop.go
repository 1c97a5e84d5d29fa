package storage

import (
	"context"

	"github.com/google/uuid"
)

// NoopSigner é usado quando as credenciais do Cloudinary não foram
// configuradas. Toda assinatura falha com ErrUnavailable.
type NoopSigner struct{}

// SignUpload sempre retorna ErrUnavailable.
func (NoopSigner) SignUpload(_ context.Context, _ uuid.UUID) (Signature, error) {
	return Signature{}, ErrUnavailable
}
