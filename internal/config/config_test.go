package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, StorageDriverLocal, cfg.Storage.Driver)
	assert.Equal(t, "ticket-photos", cfg.Storage.S3Bucket)
	assert.Equal(t, 10*1024*1024, cfg.Storage.MaxUploadBytes)
	assert.Equal(t, "retain", cfg.Lifecycle.ResolvedAtPolicy)
	assert.False(t, cfg.Lifecycle.StrictInternalComments)
	assert.Equal(t, 6, cfg.Auth.MinPasswordLength)
	assert.Equal(t, 5*time.Minute, cfg.Redis.ProfileCacheTTL())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("STORAGE_PUBLIC_BASE_URL", "https://cdn.example.com/files/")
	t.Setenv("LIFECYCLE_RESOLVED_AT_POLICY", "CLEAR")
	t.Setenv("LIFECYCLE_STRICT_INTERNAL_COMMENTS", "true")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, "https://cdn.example.com/files", cfg.Storage.PublicBaseURL)
	assert.Equal(t, "clear", cfg.Lifecycle.ResolvedAtPolicy)
	assert.True(t, cfg.Lifecycle.StrictInternalComments)
	assert.Zero(t, cfg.App.RequestTimeout())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("redis db", func(t *testing.T) {
		t.Setenv("REDIS_DB", "zero")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("storage driver", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "ftp")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("s3 without endpoint", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "s3")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("resolved_at policy", func(t *testing.T) {
		t.Setenv("LIFECYCLE_RESOLVED_AT_POLICY", "forget")
		_, err := Load()
		assert.Error(t, err)
	})
}
