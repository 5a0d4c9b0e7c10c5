package timeengine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/StephTapera/AMENAPP-sub020/internal/engine"
	"github.com/StephTapera/AMENAPP-sub020/internal/platform"
	"github.com/StephTapera/AMENAPP-sub020/internal/reminder"
	"github.com/StephTapera/AMENAPP-sub020/pkg/logx"
)

type firedLog struct {
	mu    sync.Mutex
	times []time.Time
}

func (f *firedLog) add(_ string, at time.Time) {
	f.mu.Lock()
	f.times = append(f.times, at)
	f.mu.Unlock()
}

func (f *firedLog) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.times)
}

func newTestEngine(t *testing.T, notifPerm platform.PermissionState) (*Service, *clock.Mock, *firedLog) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC))

	timers := platform.NewClockTimers(mock)
	perms := platform.NewStaticPermissions(notifPerm, platform.PermissionGranted)
	svc := New(Config{Timezone: "UTC"}, timers, perms, mock, logx.Nop())

	fired := &firedLog{}
	svc.SetFiredHandler(fired.add)
	return svc, mock, fired
}

func timeReminder(id string, rule *reminder.Rule) reminder.Reminder {
	return reminder.Reminder{
		ID:       id,
		OwnerID:  "owner-1",
		Title:    "t",
		Trigger:  reminder.TriggerTime,
		Schedule: rule,
		Enabled:  true,
	}
}

func TestDailyFiresAndRearms(t *testing.T) {
	svc, mock, fired := newTestEngine(t, platform.PermissionGranted)

	if err := svc.Activate(timeReminder("a", reminder.Daily(7, 0))); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !svc.Active("a") {
		t.Fatal("expected live task after activate")
	}

	// 06:00 -> 07:00 same day.
	mock.Add(time.Hour)
	if got := fired.count(); got != 1 {
		t.Fatalf("fired %d times, want 1", got)
	}
	// Re-armed for the next day without any external call.
	if !svc.Active("a") {
		t.Fatal("repeating task dropped after fire")
	}
	mock.Add(24 * time.Hour)
	if got := fired.count(); got != 2 {
		t.Fatalf("fired %d times, want 2", got)
	}
}

func TestOnceFiresOnceThenGone(t *testing.T) {
	svc, mock, fired := newTestEngine(t, platform.PermissionGranted)

	at := mock.Now().Add(30 * time.Minute)
	if err := svc.Activate(timeReminder("a", reminder.Once(at))); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	mock.Add(time.Hour)
	if got := fired.count(); got != 1 {
		t.Fatalf("fired %d times, want 1", got)
	}
	if svc.Active("a") {
		t.Fatal("once task still live after fire")
	}
	mock.Add(48 * time.Hour)
	if got := fired.count(); got != 1 {
		t.Fatalf("once task fired again: %d", got)
	}
}

func TestExpiredOnceIsNothingToSchedule(t *testing.T) {
	svc, mock, fired := newTestEngine(t, platform.PermissionGranted)

	err := svc.Activate(timeReminder("a", reminder.Once(mock.Now().Add(-time.Hour))))
	if !errors.Is(err, engine.ErrNothingToSchedule) {
		t.Fatalf("Activate = %v, want ErrNothingToSchedule", err)
	}
	if svc.Active("a") {
		t.Fatal("expired once rule left a task behind")
	}
	mock.Add(24 * time.Hour)
	if fired.count() != 0 {
		t.Fatal("expired once rule fired")
	}
}

func TestPermissionDenied(t *testing.T) {
	svc, _, _ := newTestEngine(t, platform.PermissionDenied)

	err := svc.Activate(timeReminder("a", reminder.Daily(7, 0)))
	if !errors.Is(err, engine.ErrPermissionDenied) {
		t.Fatalf("Activate = %v, want ErrPermissionDenied", err)
	}
	if svc.Active("a") {
		t.Fatal("denied activation left a task behind")
	}
}

func TestActivateReplacesWithoutDoubleFire(t *testing.T) {
	svc, mock, fired := newTestEngine(t, platform.PermissionGranted)

	if err := svc.Activate(timeReminder("a", reminder.Daily(7, 0))); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	// Replace before the first fire: only the new schedule remains.
	if err := svc.Activate(timeReminder("a", reminder.Daily(9, 0))); err != nil {
		t.Fatalf("re-Activate: %v", err)
	}
	if got := len(svc.Snapshot()); got != 1 {
		t.Fatalf("snapshot has %d tasks, want 1", got)
	}

	mock.Add(2 * time.Hour) // 08:00, old slot passed
	if fired.count() != 0 {
		t.Fatal("replaced schedule fired")
	}
	mock.Add(time.Hour) // 09:00
	if got := fired.count(); got != 1 {
		t.Fatalf("fired %d times, want 1", got)
	}
}

func TestDeactivateIsIdempotent(t *testing.T) {
	svc, mock, fired := newTestEngine(t, platform.PermissionGranted)

	if err := svc.Activate(timeReminder("a", reminder.Every(time.Minute))); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	svc.Deactivate("a")
	svc.Deactivate("a") // no task, no-op
	svc.Deactivate("never-existed")

	mock.Add(time.Hour)
	if fired.count() != 0 {
		t.Fatal("deactivated task fired")
	}
}

func TestCloseCancelsAll(t *testing.T) {
	svc, mock, fired := newTestEngine(t, platform.PermissionGranted)

	for _, id := range []string{"a", "b", "c"} {
		if err := svc.Activate(timeReminder(id, reminder.Every(time.Minute))); err != nil {
			t.Fatalf("Activate(%s): %v", id, err)
		}
	}
	svc.Close()
	mock.Add(time.Hour)
	if fired.count() != 0 {
		t.Fatal("task fired after Close")
	}
}
