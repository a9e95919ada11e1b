package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
)

// AuditArchiver exports audit entries to long-term storage.
type AuditArchiver interface {
	Archive(ctx context.Context, entries []domain.AuditLogEntry) (string, error)
}

// MinIOAuditArchiver writes NDJSON batches to an S3-compatible bucket,
// keyed by day for cheap lifecycle rules on the bucket side.
type MinIOAuditArchiver struct {
	client *minio.Client
	bucket string
}

func NewMinIOAuditArchiver(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinIOAuditArchiver, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	a := &MinIOAuditArchiver{client: client, bucket: bucket}
	if err := a.ensureBucketExists(context.Background()); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *MinIOAuditArchiver) ensureBucketExists(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check audit bucket: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create audit bucket: %w", err)
		}
	}
	return nil
}

func (a *MinIOAuditArchiver) Archive(ctx context.Context, entries []domain.AuditLogEntry) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return "", fmt.Errorf("encode audit entry %s: %w", entry.LogID, err)
		}
	}

	day := time.Now().UTC().Format("2006/01/02")
	objectKey := fmt.Sprintf("audit/%s/%s.ndjson", day, uuid.NewString())
	_, err := a.client.PutObject(ctx, a.bucket, objectKey, &buf, int64(buf.Len()), minio.PutObjectOptions{
		ContentType: "application/x-ndjson",
	})
	if err != nil {
		return "", fmt.Errorf("upload audit batch: %w", err)
	}
	return objectKey, nil
}
