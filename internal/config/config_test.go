package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: sqlite
  path: /tmp/salon.db
jwt:
  secret: from-file
booking:
  timezone: America/Recife
outbox:
  poll_interval: 2s
settings:
  maintenance_mode: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, 2*time.Second, cfg.Outbox.PollInterval)
	assert.Equal(t, 30, cfg.Booking.DefaultGranularityMinutes)
	assert.Equal(t, "bookings", cfg.Redis.Channel)
	assert.True(t, cfg.Settings.MaintenanceMode)
	assert.True(t, cfg.Settings.EmailNotifications)

	loc, err := cfg.Booking.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Recife", loc.String())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: from-file
`)
	t.Setenv("SALON_JWT_SECRET", "from-env")
	t.Setenv("SALON_DB_HOST", "db.internal")
	t.Setenv("SALON_DB_PORT", "6543")
	t.Setenv("SALON_REDIS_URL", "redis://cache:6379/0")
	t.Setenv("SALON_ADMIN_EMAIL", "root@example.com")
	t.Setenv("SALON_ADMIN_PASSWORD", "change-me-now")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
	assert.Equal(t, "root@example.com", cfg.Bootstrap.AdminEmail)
	assert.Equal(t, "change-me-now", cfg.Bootstrap.AdminPassword)
	assert.Equal(t, "Administrator", cfg.Bootstrap.AdminName)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: mysql
booking:
  timezone: Mars/Olympus
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
	assert.Contains(t, err.Error(), "jwt.secret")
	assert.Contains(t, err.Error(), "Mars/Olympus")
}

func TestLoadRejectsWeakBootstrapPassword(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: from-file
bootstrap:
  admin_email: root@example.com
  admin_password: short
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bootstrap.admin_password")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
