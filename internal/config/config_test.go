package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
owner_id: alice
http:
  addr: "127.0.0.1:9090"
logging:
  level: debug
  console: false
store:
  driver: sqlite
  path: /tmp/reminders.db
  busy_timeout: 2s
scheduler:
  timezone: Europe/Berlin
  geofence_capacity: 10
  store_retry_delay: 250ms
permissions:
  notification: granted
  location: denied
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "alice", cfg.OwnerID)
	require.Equal(t, "127.0.0.1:9090", cfg.HTTP.Addr)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.False(t, cfg.ConsoleLogging())
	require.Equal(t, "sqlite", cfg.Store.Driver)
	require.Equal(t, 10, cfg.Scheduler.GeofenceCapacity)
	require.Equal(t, "denied", cfg.Permissions.Location)

	bt, err := cfg.StoreBusyTimeout()
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, bt)
	rd, err := cfg.StoreRetryDelay()
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, rd)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"owner_id": "bob", "store": {"driver": "memory"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "bob", cfg.OwnerID)
	// Defaults survive a sparse file.
	require.Equal(t, "127.0.0.1:8080", cfg.HTTP.Addr)
	require.True(t, cfg.ConsoleLogging())
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeFile(t, "config.yaml", "owner_id: alice\nschedular:\n  timezone: UTC\n")
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "schedular")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty owner", func(c *Config) { c.OwnerID = " " }},
		{"bad timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }},
		{"bad retry delay", func(c *Config) { c.Scheduler.StoreRetryDelay = "soon" }},
		{"sqlite without path", func(c *Config) { c.Store.Driver = "sqlite"; c.Store.Path = "" }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
	require.NoError(t, Default().Validate())
}

func TestParseDurationField(t *testing.T) {
	d, err := ParseDurationField("x", "")
	require.NoError(t, err)
	require.Zero(t, d)

	d, err = ParseDurationField("x", "1m30s")
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, d)

	_, err = ParseDurationField("x", "five minutes")
	require.Error(t, err)
}
