package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/resolveai/api/internal/config"
)

// CloudinarySigner assina uploads diretos para o Cloudinary. A pasta é
// derivada do ator para que cada conta só escreva no próprio diretório.
type CloudinarySigner struct {
	cloudName  string
	apiKey     string
	apiSecret  string
	baseFolder string
	now        func() time.Time
}

// NewCloudinarySigner cria signer a partir da configuração.
func NewCloudinarySigner(cfg config.CloudinaryConfig) *CloudinarySigner {
	return &CloudinarySigner{
		cloudName:  cfg.CloudName,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		baseFolder: cfg.BaseFolder,
		now:        time.Now,
	}
}

// SignUpload gera a assinatura SHA-1 no formato exigido pela API de
// upload: parâmetros ordenados ("folder" e "timestamp") concatenados
// com o segredo.
func (s *CloudinarySigner) SignUpload(_ context.Context, actorID uuid.UUID) (Signature, error) {
	timestamp := s.now().Unix()
	folder := fmt.Sprintf("%s/%s", s.baseFolder, actorID)

	payload := fmt.Sprintf("folder=%s&timestamp=%d%s", folder, timestamp, s.apiSecret)
	sum := sha1.Sum([]byte(payload))

	return Signature{
		CloudName: s.cloudName,
		APIKey:    s.apiKey,
		Timestamp: timestamp,
		Folder:    folder,
		Signature: hex.EncodeToString(sum[:]),
	}, nil
}
