// Package storage uploads ticket evidence files and returns their public URLs.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// BlobStore persists an object under key and returns a URL clients can fetch it from.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// ObjectKey builds the evidence key `<ticket_id>/<unix_ms>.<ext>`. The
// extension comes from the uploaded filename and falls back to "bin".
func ObjectKey(ticketID, filename string, now time.Time) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%d.%s", ticketID, now.UnixMilli(), ext)
}

// New selects the blob store configured by STORAGE_DRIVER.
func New(cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Driver {
	case config.StorageDriverS3:
		return NewS3Store(cfg)
	case config.StorageDriverLocal, "":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}
