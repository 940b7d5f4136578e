package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	testPepper = "config-test-pepper-0123"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goaccount.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9090"
  shutdown_timeout: 5s
database:
  dsn: "file::memory:"
redis:
  addrs: ["redis-a:6379", "redis-b:6379"]
log:
  level: debug
engine:
  password:
    pepper: "`+testPepper+`"
  csrf:
    secret: "`+testSecret+`"
  attempts:
    threshold: 3
  session:
    roles:
      user:
        idle: 10m
        absolute: 2h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
	assert.Equal(t, []string{"redis-a:6379", "redis-b:6379"}, cfg.Redis.Addrs)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, testSecret, cfg.Engine.CSRF.Secret)
	assert.Equal(t, 3, cfg.Engine.Attempts.Threshold)
	assert.Equal(t, 10*time.Minute, cfg.Engine.Session.Roles["user"].Idle)
	assert.Equal(t, 2*time.Hour, cfg.Engine.Session.Roles["user"].Absolute)
	assert.Equal(t, Default().HTTP.SessionCookie, cfg.HTTP.SessionCookie)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, `
engine:
  password:
    pepper: "`+testPepper+`"
  csrf:
    secret: "`+testSecret+`"
`)
	t.Setenv("GOACCOUNT_SERVER_ADDR", ":7070")
	t.Setenv("GOACCOUNT_ENGINE_ATTEMPTS_LOCKOUT_DURATION", "45m")
	t.Setenv("GOACCOUNT_HTTP_COOKIE_SECURE", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 45*time.Minute, cfg.Engine.Attempts.LockoutDuration)
	assert.False(t, cfg.HTTP.CookieSecure)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GOACCOUNT_ENGINE_CSRF_SECRET", testSecret)
	t.Setenv("GOACCOUNT_ENGINE_PASSWORD_PEPPER", testPepper)

	cfg, err := Load("")
	require.NoError(t, err)

	want := Default()
	assert.Equal(t, want.Server, cfg.Server)
	assert.Equal(t, want.Redis, cfg.Redis)
	assert.Equal(t, want.AuditLog, cfg.AuditLog)
	assert.Equal(t, want.Engine.Attempts, cfg.Engine.Attempts)
	assert.Equal(t, want.Engine.Session, cfg.Engine.Session)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "config: read:"))
}

func TestLoadRejectsInvalidEngineConfig(t *testing.T) {
	path := writeFile(t, `
engine:
  csrf:
    secret: "short"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: engine:")
}

func TestLoadRequiresPepper(t *testing.T) {
	path := writeFile(t, `
engine:
  csrf:
    secret: "`+testSecret+`"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: engine: Password Pepper")

	t.Setenv("GOACCOUNT_ENGINE_PASSWORD_PEPPER", testPepper)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, testPepper, cfg.Engine.Password.Pepper)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Engine.CSRF.Secret = testSecret
	cfg.Engine.Password.Pepper = testPepper
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Redis.Addrs = nil
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Database.DSN = " "
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.HTTP.CookieSameSite = "none"
	bad.HTTP.CookieSecure = false
	assert.Error(t, bad.Validate())
}
