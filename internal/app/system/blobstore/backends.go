package blobstore

import (
	"context"
	"strings"

	"github.com/dalemusser/waffle/pantry/storage"
)

// MemoryBaseURL prefixes the URLs of the in-process backend.
const MemoryBaseURL = "memory://blobs"

// NewMemory keeps objects in process. It is used in development and tests.
func NewMemory(baseURL string) *Store {
	if baseURL == "" {
		baseURL = MemoryBaseURL
	}
	return New(storage.NewMemory(storage.MemoryConfig{BaseURL: strings.TrimRight(baseURL, "/")}))
}

// GCSConfig configures NewGCS. CredentialsFile may be empty to use
// application default credentials.
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	PublicBaseURL   string
}

// NewGCS stores objects in a Google Cloud Storage bucket (the bucket behind
// Firebase Storage). The returned Store must be closed.
func NewGCS(ctx context.Context, cfg GCSConfig) (*Store, error) {
	g, err := storage.NewGCS(ctx, storage.GCSConfig{
		Bucket:          cfg.Bucket,
		CredentialsFile: cfg.CredentialsFile,
		BaseURL:         cfg.PublicBaseURL,
	})
	if err != nil {
		return nil, err
	}
	return New(g), nil
}

// S3Config configures NewS3. Endpoint is set for S3-compatible services
// (MinIO, R2) and switches to path-style addressing.
type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

// NewS3 stores objects in an S3 bucket using the default AWS credential
// chain. Deleting a missing key succeeds, as in S3 itself.
func NewS3(ctx context.Context, cfg S3Config) (*Store, error) {
	base := cfg.PublicBaseURL
	if base == "" && cfg.Endpoint != "" {
		base = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	s, err := storage.NewS3(ctx, storage.S3Config{
		Bucket:       cfg.Bucket,
		Region:       cfg.Region,
		Endpoint:     cfg.Endpoint,
		UsePathStyle: cfg.Endpoint != "",
		BaseURL:      base,
	})
	if err != nil {
		return nil, err
	}
	return New(s), nil
}
