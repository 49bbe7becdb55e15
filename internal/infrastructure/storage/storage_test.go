package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/admarket/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func validS3Config() *config.StorageConfig {
	return &config.StorageConfig{
		Provider:     "s3",
		Bucket:       "proofs",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Endpoint:     "localhost:9000",
		UsePathStyle: true,
	}
}

func TestNewS3ProofStorage_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.StorageConfig)
		wantErr string
	}{
		{"missing bucket", func(c *config.StorageConfig) { c.Bucket = "" }, "bucket is required"},
		{"missing access key", func(c *config.StorageConfig) { c.AccessKey = "" }, "access key is required"},
		{"missing secret key", func(c *config.StorageConfig) { c.SecretKey = "" }, "secret key is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validS3Config()
			tt.mutate(cfg)
			_, err := NewS3ProofStorage(cfg)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	_, err := NewS3ProofStorage(nil)
	assert.ErrorContains(t, err, "configuration is required")
}

func TestNewS3ProofStorage_Defaults(t *testing.T) {
	s, err := NewS3ProofStorage(validS3Config())
	require.NoError(t, err)
	assert.Equal(t, "proofs", s.Bucket())
	assert.Equal(t, defaultPresignExpiration, s.expiration)
	assert.Equal(t, "http://localhost:9000/proofs", s.publicBaseURL)

	cfg := validS3Config()
	cfg.UseSSL = true
	cfg.PublicBaseURL = "https://cdn.example.com/"
	s, err = NewS3ProofStorage(cfg, WithPresignExpiration(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, s.expiration)
	assert.Equal(t, "https://cdn.example.com", s.publicBaseURL)
}

func TestS3ProofStorage_PresignUpload(t *testing.T) {
	s, err := NewS3ProofStorage(validS3Config())
	require.NoError(t, err)

	upload, err := s.PresignUpload(context.Background(), "campaigns/abc/proof.png", "image/png")
	require.NoError(t, err)

	u, err := url.Parse(upload.UploadURL)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/proofs/campaigns/abc/proof.png", u.Path)
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.Equal(t, "http://localhost:9000/proofs/campaigns/abc/proof.png", upload.ProofURL)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), upload.ExpiresAt, time.Minute)

	_, err = s.PresignUpload(context.Background(), "", "image/png")
	assert.Error(t, err)
}

func TestStubProofStorage(t *testing.T) {
	s := NewStubProofStorage("")
	upload, err := s.PresignUpload(context.Background(), "campaigns/abc/proof.png", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(upload.UploadURL, "https://storage.example.com/upload/campaigns/abc/proof.png?expires="))
	assert.Equal(t, "https://storage.example.com/campaigns/abc/proof.png", upload.ProofURL)

	_, err = s.PresignUpload(context.Background(), "", "")
	assert.Error(t, err)
}

func TestNewProofStorage(t *testing.T) {
	logger := zap.NewNop()

	assert.IsType(t, &StubProofStorage{}, NewProofStorage(&config.StorageConfig{Provider: "stub"}, logger))
	assert.IsType(t, &S3ProofStorage{}, NewProofStorage(validS3Config(), logger))

	broken := validS3Config()
	broken.Bucket = ""
	assert.IsType(t, &StubProofStorage{}, NewProofStorage(broken, logger))
}
