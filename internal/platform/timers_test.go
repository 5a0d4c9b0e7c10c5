package platform

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

type fireRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *fireRecorder) record(id string) {
	r.mu.Lock()
	r.ids = append(r.ids, id)
	r.mu.Unlock()
}

func (r *fireRecorder) fired() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func TestClockTimersFire(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC))

	ct := NewClockTimers(mock)
	rec := &fireRecorder{}
	ct.SetHandler(rec.record)

	_, err := ct.Register("a", mock.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	mock.Add(30 * time.Second)
	if got := rec.fired(); len(got) != 0 {
		t.Fatalf("fired early: %v", got)
	}
	mock.Add(time.Minute)
	if got := rec.fired(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("fired = %v, want [a]", got)
	}
}

func TestClockTimersCancel(t *testing.T) {
	mock := clock.NewMock()
	ct := NewClockTimers(mock)
	rec := &fireRecorder{}
	ct.SetHandler(rec.record)

	h, err := ct.Register("a", mock.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	ct.Cancel(h)

	mock.Add(2 * time.Minute)
	if got := rec.fired(); len(got) != 0 {
		t.Fatalf("cancelled timer fired: %v", got)
	}

	// Cancelling again is a no-op.
	ct.Cancel(h)
}

func TestClockTimersReplace(t *testing.T) {
	mock := clock.NewMock()
	ct := NewClockTimers(mock)
	rec := &fireRecorder{}
	ct.SetHandler(rec.record)

	old, err := ct.Register("a", mock.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := ct.Register("a", mock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("re-Register: %v", err)
	}

	// The replaced registration must not fire at its old deadline, and a
	// stale handle must not cancel the replacement.
	ct.Cancel(old)
	mock.Add(2 * time.Minute)
	if got := rec.fired(); len(got) != 0 {
		t.Fatalf("replaced timer fired: %v", got)
	}
	mock.Add(time.Hour)
	if got := rec.fired(); len(got) != 1 {
		t.Fatalf("fired = %v, want exactly one", got)
	}
}

func TestClockTimersPastDeadlineFiresImmediately(t *testing.T) {
	mock := clock.NewMock()
	ct := NewClockTimers(mock)
	rec := &fireRecorder{}
	ct.SetHandler(rec.record)

	if _, err := ct.Register("a", mock.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	mock.Add(time.Millisecond)
	if got := rec.fired(); len(got) != 1 {
		t.Fatalf("fired = %v, want one immediate fire", got)
	}
}
