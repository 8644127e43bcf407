package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1767350400123)
	assert.Equal(t, "t-1/1767350400123.jpg", ObjectKey("t-1", "Photo.JPG", now))
	assert.Equal(t, "t-1/1767350400123.bin", ObjectKey("t-1", "noext", now))
	assert.Equal(t, "t-1/1767350400123.bin", ObjectKey("t-1", "", now))
}

func TestLocalStoreUpload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:8080/files/")
	require.NoError(t, err)

	url, err := store.Upload(context.Background(), "t-1/42.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/t-1/42.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "t-1", "42.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.NoError(t, store.Ping(context.Background()))
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://x")
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "../outside.txt", "text/plain", []byte("x"))
	assert.Error(t, err)
}

func TestLocalStoreHonoursCancelledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://x")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Upload(ctx, "t-1/1.png", "image/png", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSelectsDriver(t *testing.T) {
	store, err := New(config.StorageConfig{Driver: config.StorageDriverLocal, LocalDir: t.TempDir(), PublicBaseURL: "http://x"})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	s3, err := New(config.StorageConfig{Driver: config.StorageDriverS3, S3Endpoint: "localhost:9000", S3Bucket: "ticket-photos"})
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, s3)

	_, err = New(config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}
