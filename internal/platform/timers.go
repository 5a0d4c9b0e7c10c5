package platform

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ClockTimers implements TimeTriggers on top of an injected clock, so tests
// can drive fires deterministically with clock.Mock.
//
// Registrations are versioned: a stale timer callback that lost a race to a
// Cancel or a re-Register is ignored.
type ClockTimers struct {
	clk clock.Clock

	mu      sync.Mutex
	handler func(id string)
	timers  map[string]*clock.Timer
	vers    map[string]uint64
	seq     uint64
}

func NewClockTimers(clk clock.Clock) *ClockTimers {
	if clk == nil {
		clk = clock.New()
	}
	return &ClockTimers{
		clk:    clk,
		timers: map[string]*clock.Timer{},
		vers:   map[string]uint64{},
	}
}

func (t *ClockTimers) SetHandler(fn func(id string)) {
	t.mu.Lock()
	t.handler = fn
	t.mu.Unlock()
}

func (t *ClockTimers) Register(id string, fireAt time.Time) (TimeHandle, error) {
	if id == "" {
		return TimeHandle{}, errors.New("timer id required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Replace any prior registration for the same id.
	if prev, ok := t.timers[id]; ok {
		_ = prev.Stop()
		delete(t.timers, id)
	}
	t.seq++
	ver := t.seq
	t.vers[id] = ver

	delay := fireAt.Sub(t.clk.Now())
	if delay < 0 {
		delay = 0
	}
	t.timers[id] = t.clk.AfterFunc(delay, func() {
		t.fire(id, ver)
	})
	return TimeHandle{id: id, ver: ver}, nil
}

func (t *ClockTimers) fire(id string, ver uint64) {
	t.mu.Lock()
	if t.vers[id] != ver {
		// replaced or cancelled while the callback was in flight
		t.mu.Unlock()
		return
	}
	delete(t.timers, id)
	delete(t.vers, id)
	fn := t.handler
	t.mu.Unlock()

	if fn != nil {
		fn(id)
	}
}

func (t *ClockTimers) Cancel(h TimeHandle) {
	if h.id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.vers[h.id] != h.ver {
		return
	}
	if tmr, ok := t.timers[h.id]; ok {
		_ = tmr.Stop()
		delete(t.timers, h.id)
	}
	delete(t.vers, h.id)
}

// Close stops all pending timers.
func (t *ClockTimers) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, tmr := range t.timers {
		_ = tmr.Stop()
		delete(t.timers, id)
		delete(t.vers, id)
	}
}
