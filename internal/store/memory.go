package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/StephTapera/AMENAPP-sub020/internal/reminder"
)

// Memory is the in-process driver. Besides ephemeral runs it doubles as the
// test fake: failures can be injected to exercise the transient/auth error
// paths without a real backend.
type Memory struct {
	mu        sync.Mutex
	byID      map[string]reminder.Reminder
	authed    bool
	failNext  int // number of upcoming calls that fail with ErrUnavailable
	failSaves int // like failNext, but only Save consumes these
}

func NewMemory() *Memory {
	return &Memory{byID: map[string]reminder.Reminder{}, authed: true}
}

// SetAuthenticated toggles the simulated sign-in state.
func (m *Memory) SetAuthenticated(v bool) {
	m.mu.Lock()
	m.authed = v
	m.mu.Unlock()
}

// FailNext makes the next n operations return ErrUnavailable.
func (m *Memory) FailNext(n int) {
	m.mu.Lock()
	m.failNext = n
	m.mu.Unlock()
}

// FailNextSaves makes the next n Save calls return ErrUnavailable while
// reads keep working.
func (m *Memory) FailNextSaves(n int) {
	m.mu.Lock()
	m.failSaves = n
	m.mu.Unlock()
}

// gate is called with m.mu held.
func (m *Memory) gate() error {
	if m.failNext > 0 {
		m.failNext--
		return ErrUnavailable
	}
	if !m.authed {
		return ErrNotAuthenticated
	}
	return nil
}

func (m *Memory) Save(_ context.Context, r reminder.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaves > 0 {
		m.failSaves--
		return ErrUnavailable
	}
	if err := m.gate(); err != nil {
		return err
	}
	m.byID[r.ID] = cloneReminder(r)
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.gate(); err != nil {
		return err
	}
	delete(m.byID, id)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*reminder.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.gate(); err != nil {
		return nil, err
	}
	r, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := cloneReminder(r)
	return &cp, nil
}

func (m *Memory) LoadAll(_ context.Context, ownerID string) ([]reminder.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.gate(); err != nil {
		return nil, err
	}
	var out []reminder.Reminder
	for _, r := range m.byID {
		if r.OwnerID == ownerID {
			out = append(out, cloneReminder(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) Close() error { return nil }

// cloneReminder deep-copies the payload pointers so callers cannot mutate
// stored state through a returned record.
func cloneReminder(r reminder.Reminder) reminder.Reminder {
	if r.Schedule != nil {
		rule := *r.Schedule
		rule.Weekdays = append([]time.Weekday(nil), r.Schedule.Weekdays...)
		r.Schedule = &rule
	}
	if r.Location != nil {
		region := *r.Location
		r.Location = &region
	}
	return r
}
