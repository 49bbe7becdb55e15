package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/admarket/backend/internal/application/escrow"
	infraconfig "github.com/admarket/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StubProofStorage hands out fake URLs for local development
type StubProofStorage struct {
	BaseURL    string
	Expiration time.Duration
}

// NewStubProofStorage creates a stub rooted at baseURL
func NewStubProofStorage(baseURL string) *StubProofStorage {
	if baseURL == "" {
		baseURL = "https://storage.example.com"
	}
	return &StubProofStorage{BaseURL: strings.TrimRight(baseURL, "/"), Expiration: defaultPresignExpiration}
}

// PresignUpload returns a URL that nothing serves
func (s *StubProofStorage) PresignUpload(_ context.Context, key, _ string) (*escrow.ProofUpload, error) {
	if key == "" {
		return nil, errors.New("storage key is required")
	}
	expiresAt := time.Now().UTC().Add(s.Expiration)
	q := url.Values{"expires": {expiresAt.Format(time.RFC3339)}}
	return &escrow.ProofUpload{
		UploadURL: s.BaseURL + "/upload/" + key + "?" + q.Encode(),
		ProofURL:  s.BaseURL + "/" + key,
		ExpiresAt: expiresAt,
	}, nil
}

var _ escrow.ProofStorage = (*StubProofStorage)(nil)

// NewProofStorage selects the backend named by cfg.Provider. An S3 backend
// that cannot be configured degrades to the stub.
func NewProofStorage(cfg *infraconfig.StorageConfig, logger *zap.Logger) escrow.ProofStorage {
	if cfg.Provider != "s3" {
		return NewStubProofStorage(cfg.PublicBaseURL)
	}
	s, err := NewS3ProofStorage(cfg, WithLogger(logger))
	if err != nil {
		logger.Warn("s3 proof storage unavailable, using stub", zap.Error(err))
		return NewStubProofStorage(cfg.PublicBaseURL)
	}
	return s
}
