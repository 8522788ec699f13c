// Package storage stages queued audio payloads in an object store so
// dispatch messages carry a reference instead of megabytes of audio.
package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gdiab/showscribe/internal/config"
)

// BlobStore wraps a MinIO (S3-compatible) bucket
type BlobStore struct {
	client *minio.Client
	bucket string
}

// NewBlobStore connects to the object store and ensures the bucket exists
func NewBlobStore(cfg *config.MinioConfig) (*BlobStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		log.Printf("[Blob] Created bucket %s", cfg.Bucket)
	}

	return &BlobStore{client: client, bucket: cfg.Bucket}, nil
}

// Upload stores a local file under objectName
func (s *BlobStore) Upload(ctx context.Context, objectName, filePath string) error {
	info, err := s.client.FPutObject(ctx, s.bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType: "audio/mpeg",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	log.Printf("[Blob] Uploaded %s (%d bytes)", objectName, info.Size)
	return nil
}

// Download retrieves objectName into dstPath
func (s *BlobStore) Download(ctx context.Context, objectName, dstPath string) error {
	if err := s.client.FGetObject(ctx, s.bucket, objectName, dstPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("failed to download %s: %w", objectName, err)
	}
	return nil
}

// Remove deletes a staged object once its job has been processed
func (s *BlobStore) Remove(ctx context.Context, objectName string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}
