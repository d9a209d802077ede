package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("PUBLIC_URL", "https://api.example.org/")
	t.Setenv("STORAGE_ALLOWED_MIME_TYPES", "application/pdf, image/png ,")
	t.Setenv("JWT_EXPIRATION", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.org", cfg.PublicURL)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, []string{"application/pdf", "image/png"}, cfg.Storage.AllowedMIMEs)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 15*time.Minute, cfg.Storage.UploadURLTTL)
	assert.EqualValues(t, 10*1024*1024, cfg.Storage.MaxFileSizeBytes)
	assert.Equal(t, 4, cfg.Bulk.Concurrency)
	assert.True(t, cfg.Applications.AllowAdminOverride)
	assert.Equal(t, 1, cfg.Notifications.InlineRetries)
	assert.Equal(t, 2*time.Second, cfg.Notifications.InlineRetryDelay)
}

func TestLoadRejectsDevelopmentSecretsInProduction(t *testing.T) {
	t.Setenv("ENV", EnvProduction)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORAGE_SIGNED_URL_SECRET", "")
	t.Setenv("CLERK_WEBHOOK_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET must be set")
	assert.Contains(t, err.Error(), "CLERK_WEBHOOK_SECRET must be set")

	t.Setenv("JWT_SECRET", "prod-jwt")
	t.Setenv("STORAGE_SIGNED_URL_SECRET", "prod-storage")
	t.Setenv("CLERK_WEBHOOK_SECRET", "whsec_abc")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvProduction, cfg.Env)
}
