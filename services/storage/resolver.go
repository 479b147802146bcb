// Package storage resolves retrieved documents to fetchable URLs.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dupatihari/azure-rag-demo/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// URLResolver maps a document source name to a URL a reader can open
type URLResolver interface {
	Resolve(ctx context.Context, source string) (string, error)
}

// MinioResolver presigns GET URLs for objects in an S3-compatible bucket.
// The document source is used as the object key.
type MinioResolver struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

// NewMinioResolver creates a resolver for cfg.Bucket
func NewMinioResolver(cfg config.StorageConfig) (*MinioResolver, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("storage access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		// An explicit region keeps presigning offline.
		region = "us-east-1"
	}
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}

	return &MinioResolver{client: client, bucket: bucket, expiry: expiry}, nil
}

// Resolve returns a presigned URL for source, or "" when source is empty
func (r *MinioResolver) Resolve(ctx context.Context, source string) (string, error) {
	key := strings.TrimPrefix(strings.TrimSpace(source), "/")
	if key == "" {
		return "", nil
	}

	u, err := r.client.PresignedGetObject(ctx, r.bucket, key, r.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", r.bucket, key, err)
	}
	return u.String(), nil
}
