package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV": "test", "APP_PORT": "8080",
		"DB_USER": "kid", "DB_HOST": "localhost", "DB_PORT": "3306", "DB_NAME": "kidcheck",
		"JWT_SECRET": "s3cret", "BCRYPT_COST": "10",
	} {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "auto", cfg.SessionStore)
	assert.Equal(t, "123456", cfg.DefaultAdminPassword)
	assert.Equal(t, DBConfig{User: "kid", Host: "localhost", Port: "3306", Name: "kidcheck"}, cfg.DB)
	assert.False(t, cfg.Events.Enabled)
	assert.Equal(t, "logs", cfg.Events.AuditLogDir)
}

func TestLoadReportsAllMissing(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("BCRYPT_COST", "ten")
	t.Setenv("SESSION_STORE", "etcd")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "BCRYPT_COST")
	assert.Contains(t, err.Error(), "SESSION_STORE")
}

func TestLoadDotEnv(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KIDCHECK_TEST_VAR=from-file\n"), 0o600))
	t.Setenv("KIDCHECK_TEST_VAR", "")
	os.Unsetenv("KIDCHECK_TEST_VAR")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("KIDCHECK_TEST_VAR"))
}

func TestRateLimitNormalize(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	c := LoadRateLimitConfig()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 2*time.Second, c.RefillInterval)
	assert.Equal(t, 10*time.Second, c.TTL)
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_FLAG", "yes")
	assert.True(t, envBool("X_FLAG", false))
	t.Setenv("X_FLAG", "maybe")
	assert.True(t, envBool("X_FLAG", true))
}
