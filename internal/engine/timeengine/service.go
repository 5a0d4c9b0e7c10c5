// Package timeengine maintains one scheduled wall-clock fire per active
// reminder, re-arming repeating rules after each delivery.
package timeengine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/StephTapera/AMENAPP-sub020/internal/engine"
	"github.com/StephTapera/AMENAPP-sub020/internal/platform"
	"github.com/StephTapera/AMENAPP-sub020/internal/recurrence"
	"github.com/StephTapera/AMENAPP-sub020/internal/reminder"
	"github.com/StephTapera/AMENAPP-sub020/pkg/logx"
)

// FiredFunc receives fired events. Called outside engine locks.
type FiredFunc func(id string, firedAt time.Time)

type Config struct {
	// Timezone is an IANA name used to evaluate daily/weekly rules.
	// Empty means the process-local zone.
	Timezone string
}

type taskEntry struct {
	handle   platform.TimeHandle
	rule     reminder.Rule
	nextFire time.Time
}

// TaskInfo describes one live task for snapshots.
type TaskInfo struct {
	ID       string
	NextFire time.Time
}

type Service struct {
	log    logx.Logger
	timers platform.TimeTriggers
	perms  platform.PermissionProvider
	clk    clock.Clock
	loc    *time.Location

	mu      sync.Mutex
	tasks   map[string]*taskEntry
	onFired FiredFunc
}

func New(cfg Config, timers platform.TimeTriggers, perms platform.PermissionProvider, clk clock.Clock, log logx.Logger) *Service {
	if clk == nil {
		clk = clock.New()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		log:    log,
		timers: timers,
		perms:  perms,
		clk:    clk,
		loc:    loadLocation(cfg.Timezone, log),
		tasks:  map[string]*taskEntry{},
	}
	timers.SetHandler(s.handleFire)
	return s
}

// SetFiredHandler installs the delivery callback. Must be called before the
// first Activate.
func (s *Service) SetFiredHandler(fn FiredFunc) {
	s.mu.Lock()
	s.onFired = fn
	s.mu.Unlock()
}

// Activate computes the next fire for the reminder's rule and registers it,
// replacing any prior task for the same id (cancel-then-register, never
// register twice).
func (s *Service) Activate(r reminder.Reminder) error {
	if r.Schedule == nil {
		return fmt.Errorf("%w: reminder %s has no schedule", engine.ErrNothingToSchedule, r.ID)
	}
	if st := s.perms.Notification(); st != platform.PermissionGranted {
		return fmt.Errorf("%w: notification permission is %s", engine.ErrPermissionDenied, st)
	}

	next, err := recurrence.Next(*r.Schedule, s.clk.Now(), s.loc)
	if err != nil {
		// An exhausted once rule leaves no task behind, including a
		// previously registered one for the same id.
		if errors.Is(err, recurrence.ErrExhausted) {
			s.Deactivate(r.ID)
			return fmt.Errorf("%w: %s", engine.ErrNothingToSchedule, r.ID)
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.tasks[r.ID]; ok {
		s.timers.Cancel(prev.handle)
		delete(s.tasks, r.ID)
	}
	h, err := s.timers.Register(r.ID, next)
	if err != nil {
		return fmt.Errorf("register timer for %s: %w", r.ID, err)
	}
	s.tasks[r.ID] = &taskEntry{handle: h, rule: *r.Schedule, nextFire: next}
	s.log.Debug("time task armed", logx.String("id", r.ID), logx.Time("fire_at", next))
	return nil
}

// Deactivate cancels the task for id. No-op when none exists.
func (s *Service) Deactivate(id string) {
	s.mu.Lock()
	e, ok := s.tasks[id]
	if ok {
		s.timers.Cancel(e.handle)
		delete(s.tasks, id)
	}
	s.mu.Unlock()
	if ok {
		s.log.Debug("time task cancelled", logx.String("id", id))
	}
}

// handleFire runs on timer delivery. Repeating rules are re-armed before the
// fired event is surfaced, so a missed re-arm cannot silently stop a
// recurring reminder.
func (s *Service) handleFire(id string) {
	firedAt := s.clk.Now()

	s.mu.Lock()
	e, ok := s.tasks[id]
	if !ok {
		// Cancelled while the delivery was in flight.
		s.mu.Unlock()
		return
	}
	if e.rule.Repeats() {
		next, err := recurrence.Next(e.rule, firedAt, s.loc)
		if err != nil {
			delete(s.tasks, id)
			s.mu.Unlock()
			s.log.Error("re-arm failed; task dropped", logx.String("id", id), logx.Err(err))
			return
		}
		h, err := s.timers.Register(id, next)
		if err != nil {
			delete(s.tasks, id)
			s.mu.Unlock()
			s.log.Error("re-arm registration failed; task dropped", logx.String("id", id), logx.Err(err))
			return
		}
		e.handle = h
		e.nextFire = next
	} else {
		delete(s.tasks, id)
	}
	fn := s.onFired
	s.mu.Unlock()

	s.log.Debug("time task fired", logx.String("id", id), logx.Time("at", firedAt))
	if fn != nil {
		fn(id, firedAt)
	}
}

// Active reports whether id currently holds a live task.
func (s *Service) Active(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[id]
	return ok
}

func (s *Service) Snapshot() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskInfo, 0, len(s.tasks))
	for id, e := range s.tasks {
		out = append(out, TaskInfo{ID: id, NextFire: e.nextFire})
	}
	return out
}

// Close cancels every task the engine owns.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.tasks {
		s.timers.Cancel(e.handle)
		delete(s.tasks, id)
	}
}

func loadLocation(tz string, log logx.Logger) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
