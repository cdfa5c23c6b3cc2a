package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("GIN_MODE: test\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.GinMode)
	assert.Equal(t, ":8080", cfg.ServerPort)
	assert.Equal(t, "data.json", cfg.DataFile)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 2*time.Second, cfg.CacheTTL)
	assert.False(t, cfg.SSO.Enabled())
	assert.False(t, cfg.Session.SecureCookie)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "admin", cfg.Admin.MasterUsername)
	assert.Empty(t, cfg.Admin.MasterPassword, "master account is off until a password is configured")
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portal.yaml")
	content := `
DATA_FILE: /srv/portal/data.json
STORAGE:
  BACKEND: badger
SESSION:
  BACKEND: redis
  REDIS_ADDR: redis:6379
SSO:
  CLIENT_ID: portal
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("PORTAL_ADMIN_MASTER_USERNAME", "root")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/portal/data.json", cfg.DataFile)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, "redis:6379", cfg.Session.RedisAddr)
	assert.True(t, cfg.SSO.Enabled())
	assert.Equal(t, "root", cfg.Admin.MasterUsername)
}
