package validator

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/dokuflow/document-pipeline/internal/models"
)

// StorageKey is the decomposed object key
// {vertical-folder}/{tenantId}/.../{documentId}.{ext}.
type StorageKey struct {
	Vertical   models.Vertical
	TenantID   string
	DocumentID string
	Filename   string
	Ext        string
}

// ParseStorageKey validates and decomposes an object key. The tenant segment
// must be a UUID; the final segment carries the document id as its basename.
func ParseStorageKey(key string) (*StorageKey, error) {
	key = strings.Trim(key, "/")
	parts := strings.Split(key, "/")
	if len(parts) < 3 {
		return nil, fmt.Errorf("storage key %q has %d segments, need at least 3", key, len(parts))
	}

	vertical, ok := models.ParseVertical(parts[0])
	if !ok {
		return nil, fmt.Errorf("storage key %q has unknown vertical folder %q", key, parts[0])
	}

	tenantID := parts[1]
	if _, err := uuid.Parse(tenantID); err != nil {
		return nil, fmt.Errorf("storage key %q has invalid tenant id %q", key, tenantID)
	}

	filename := parts[len(parts)-1]
	ext := path.Ext(filename)
	documentID := strings.TrimSuffix(filename, ext)
	if documentID == "" {
		return nil, fmt.Errorf("storage key %q has empty document id", key)
	}

	return &StorageKey{
		Vertical:   vertical,
		TenantID:   tenantID,
		DocumentID: documentID,
		Filename:   filename,
		Ext:        ext,
	}, nil
}
