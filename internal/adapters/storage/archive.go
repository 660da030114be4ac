// Package storage archives bulk-run result CSVs to S3-compatible object
// storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"lending_crm_backend/platform/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound is returned by Fetch when no object exists under the key.
var ErrNotFound = errors.New("archived result not found")

// RunKey builds the object key for a run archived on the given date.
func RunKey(runID string, archivedAt time.Time) string {
	return fmt.Sprintf("bulk-results/%s/%s.csv", archivedAt.Format("2006-01-02"), runID)
}

// Archiver stores result CSVs under bulk-results/<date>/<runID>.csv so a
// finished run can be retrieved after the HTTP response stream is gone.
type Archiver struct {
	client *minio.Client
	bucket string
}

// NewArchiver creates the MinIO-backed archiver and ensures the bucket
// exists. Callers gate on cfg.IsArchiveEnabled() first.
func NewArchiver(ctx context.Context, cfg config.ArchiveConfig) (*Archiver, error) {
	if !cfg.IsArchiveEnabled() {
		return nil, fmt.Errorf("archive storage is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	a := &Archiver{client: client, bucket: cfg.GetMinioBucketBulkResults()}
	if err := a.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Archiver) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
		}
	}
	return nil
}

// ArchiveRun uploads one result CSV and returns its object key.
func (a *Archiver) ArchiveRun(ctx context.Context, runID string, r io.Reader, size int64) (string, error) {
	key := RunKey(runID, time.Now())

	_, err := a.client.PutObject(ctx, a.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive run %s: %w", runID, err)
	}
	return key, nil
}

// Fetch streams an archived result CSV back. The caller closes the reader.
// Returns ErrNotFound when nothing was archived under the key.
func (a *Archiver) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	// GetObject is lazy; Stat forces the lookup so missing keys surface
	// here instead of on the first Read.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	return obj, nil
}
