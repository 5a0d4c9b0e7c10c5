package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/StephTapera/AMENAPP-sub020/internal/reminder"
	"github.com/StephTapera/AMENAPP-sub020/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Save(ctx context.Context, r reminder.Reminder) error {
	schedule, location, err := encodePayloads(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reminders(id, owner_id, title, trigger, schedule, location, enabled, created_at)
		 VALUES(?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   owner_id=excluded.owner_id, title=excluded.title, trigger=excluded.trigger,
		   schedule=excluded.schedule, location=excluded.location, enabled=excluded.enabled`,
		r.ID, r.OwnerID, r.Title, string(r.Trigger), schedule, location,
		boolInt(r.Enabled), r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrUnavailable, r.ID, err)
	}
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrUnavailable, id, err)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (*reminder.Reminder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, trigger, schedule, location, enabled, created_at
		 FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrUnavailable, id, err)
	}
	return r, nil
}

func (s *sqliteStore) LoadAll(ctx context.Context, ownerID string) ([]reminder.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, title, trigger, schedule, location, enabled, created_at
		 FROM reminders WHERE owner_id = ? ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: load owner %s: %w", ErrUnavailable, ownerID, err)
	}
	defer rows.Close()

	var out []reminder.Reminder
	for rows.Next() {
		r, err := scanReminder(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: load owner %s: %w", ErrUnavailable, ownerID, err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load owner %s: %w", ErrUnavailable, ownerID, err)
	}
	return out, nil
}

func encodePayloads(r reminder.Reminder) (schedule, location any, err error) {
	schedule, location = nil, nil
	if r.Schedule != nil {
		b, err := json.Marshal(r.Schedule)
		if err != nil {
			return nil, nil, fmt.Errorf("encode schedule for %s: %w", r.ID, err)
		}
		schedule = string(b)
	}
	if r.Location != nil {
		b, err := json.Marshal(r.Location)
		if err != nil {
			return nil, nil, fmt.Errorf("encode location for %s: %w", r.ID, err)
		}
		location = string(b)
	}
	return schedule, location, nil
}

func scanReminder(scan func(dest ...any) error) (*reminder.Reminder, error) {
	var (
		r                  reminder.Reminder
		trigger, createdAt string
		schedule, location sql.NullString
		enabled            int
	)
	err := scan(&r.ID, &r.OwnerID, &r.Title, &trigger, &schedule, &location, &enabled, &createdAt)
	if err != nil {
		return nil, err
	}
	r.Trigger = reminder.TriggerType(trigger)
	r.Enabled = enabled != 0
	r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("decode created_at for %s: %w", r.ID, err)
	}
	if schedule.Valid && schedule.String != "" {
		var rule reminder.Rule
		if err := json.Unmarshal([]byte(schedule.String), &rule); err != nil {
			return nil, fmt.Errorf("decode schedule for %s: %w", r.ID, err)
		}
		r.Schedule = &rule
	}
	if location.Valid && location.String != "" {
		var region reminder.GeoRegion
		if err := json.Unmarshal([]byte(location.String), &region); err != nil {
			return nil, fmt.Errorf("decode location for %s: %w", r.ID, err)
		}
		r.Location = &region
	}
	return &r, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
