// Package store persists reminder records.
//
// Two drivers are available:
//   - "sqlite": durable single-file database
//   - "memory": in-process map, used by tests and ephemeral runs
//
// Failures are classified by sentinel: ErrUnavailable is transient and may
// be retried by the caller; ErrNotAuthenticated is fatal to the operation.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/StephTapera/AMENAPP-sub020/internal/reminder"
	"github.com/StephTapera/AMENAPP-sub020/pkg/logx"
)

var (
	// ErrUnavailable marks transient backend failures (I/O, busy database,
	// network-backed stores). Callers may retry with bounded backoff.
	ErrUnavailable = errors.New("store unavailable")

	// ErrNotAuthenticated means the backing store requires a signed-in
	// user. Never retried automatically.
	ErrNotAuthenticated = errors.New("store not authenticated")
)

// Store is the durable record of reminders, keyed by id and scoped by owner.
type Store interface {
	// Save upserts by id. Idempotent.
	Save(ctx context.Context, r reminder.Reminder) error
	// Delete removes the record. Absence is not an error.
	Delete(ctx context.Context, id string) error
	// Get returns nil without error when the id is unknown.
	Get(ctx context.Context, id string) (*reminder.Reminder, error)
	// LoadAll returns every reminder owned by ownerID, used to rehydrate
	// the schedule at process start.
	LoadAll(ctx context.Context, ownerID string) ([]reminder.Reminder, error)
	Close() error
}

// Config selects and configures a driver.
type Config struct {
	Driver      string
	Path        string        // sqlite only
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store. An empty driver defaults to memory.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown store driver: " + driver)
	}
}
