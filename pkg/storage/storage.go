package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/dokuflow/document-pipeline/pkg/logger"
	"github.com/dokuflow/document-pipeline/pkg/storage/minio"
	"github.com/dokuflow/document-pipeline/pkg/storage/s3"
)

// StorageType selects the object store backend.
type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Storage is the object store holding uploaded documents. Keys follow the
// {vertical-folder}/{tenantId}/.../{documentId}.{ext} layout.
type Storage interface {
	// Store writes an object and returns its key.
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	// Get opens an object for streaming.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes an object.
	Delete(ctx context.Context, key string) error
}

// NewStorage is the backend factory.
func NewStorage(storageType StorageType, log logger.Logger) (Storage, error) {
	switch storageType {
	case StorageTypeS3:
		return s3.NewS3Storage(log)
	case StorageTypeMinio:
		return minio.NewMinioStorage(log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// Download reads a whole object into memory. Document files are bounded by
// the upload size limit, so buffering them is acceptable.
func Download(ctx context.Context, s Storage, key string) ([]byte, error) {
	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %q: %w", key, err)
	}
	return data, nil
}
