// Package config loads and watches the reminderd configuration file.
//
// JSON and YAML are both accepted; YAML is coerced to JSON so one strict
// decoder (DisallowUnknownFields) covers both. Durations are Go duration
// strings (e.g. "100ms", "2s").
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	// OwnerID scopes the schedule rehydrated at startup.
	OwnerID string `json:"owner_id"`

	HTTP        HTTPConfig        `json:"http,omitempty"`
	Logging     LoggingConfig     `json:"logging,omitempty"`
	Store       StoreConfig       `json:"store,omitempty"`
	Scheduler   SchedulerConfig   `json:"scheduler,omitempty"`
	Permissions PermissionsConfig `json:"permissions,omitempty"`
	Pprof       PprofConfig       `json:"pprof,omitempty"`
}

// PprofConfig gates the optional loopback profiling server.
type PprofConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:6060"
}

type HTTPConfig struct {
	Addr string `json:"addr,omitempty"` // default "127.0.0.1:8080"
}

type LoggingConfig struct {
	Level   string     `json:"level,omitempty"`
	Console *bool      `json:"console,omitempty"` // default true
	File    FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// StoreConfig selects the persistence driver.
type StoreConfig struct {
	Driver      string `json:"driver,omitempty"` // "sqlite" or "memory"
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

type SchedulerConfig struct {
	Timezone         string `json:"timezone,omitempty"` // IANA name, e.g. "Europe/Berlin"
	GeofenceCapacity int    `json:"geofence_capacity,omitempty"`
	StoreRetryDelay  string `json:"store_retry_delay,omitempty"`

	// NotifyRatePerSec caps how many alerts per second the shell renders.
	NotifyRatePerSec int `json:"notify_rate_per_sec,omitempty"`
}

// PermissionsConfig seeds the simulated permission provider. Values:
// "granted", "denied", "not_determined".
type PermissionsConfig struct {
	Notification string `json:"notification,omitempty"`
	Location     string `json:"location,omitempty"`
}

func Default() *Config {
	console := true
	return &Config{
		OwnerID: "local",
		HTTP:    HTTPConfig{Addr: "127.0.0.1:8080"},
		Logging: LoggingConfig{Level: "info", Console: &console},
		Store:   StoreConfig{Driver: "memory"},
		Permissions: PermissionsConfig{
			Notification: "granted",
			Location:     "granted",
		},
	}
}

// Load reads, coerces, and strictly decodes the config file, then validates
// it. Unknown fields are rejected to catch typos early.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jb, format, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode %s config: %w", format, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.OwnerID) == "" {
		return fmt.Errorf("owner_id is required")
	}
	if _, err := c.StoreBusyTimeout(); err != nil {
		return err
	}
	if _, err := c.StoreRetryDelay(); err != nil {
		return err
	}
	if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: %w", err)
		}
	}
	switch d := strings.ToLower(strings.TrimSpace(c.Store.Driver)); d {
	case "", "memory":
	case "sqlite", "sqlite3":
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("store.driver: unknown driver %q", d)
	}
	return nil
}

func (c *Config) StoreBusyTimeout() (time.Duration, error) {
	return ParseDurationField("store.busy_timeout", c.Store.BusyTimeout)
}

func (c *Config) StoreRetryDelay() (time.Duration, error) {
	return ParseDurationField("scheduler.store_retry_delay", c.Scheduler.StoreRetryDelay)
}

func (c *Config) ConsoleLogging() bool {
	return c.Logging.Console == nil || *c.Logging.Console
}
