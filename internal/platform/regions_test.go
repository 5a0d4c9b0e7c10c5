package platform

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/StephTapera/AMENAPP-sub020/internal/reminder"
)

func testRegion() reminder.GeoRegion {
	return reminder.GeoRegion{
		Latitude:      48.8584,
		Longitude:     2.2945,
		RadiusMeters:  100,
		NotifyOnEntry: true,
		NotifyOnExit:  true,
	}
}

type crossingRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *crossingRecorder) record(id string, kind RegionEventKind) {
	r.mu.Lock()
	r.events = append(r.events, id+"/"+kind.String())
	r.mu.Unlock()
}

func (r *crossingRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestSimulatedRegionsCapacity(t *testing.T) {
	m := NewSimulatedRegions(2)

	if _, err := m.Register("a", testRegion()); err != nil {
		t.Fatalf("Register a: %v", err)
	}
	if _, err := m.Register("b", testRegion()); err != nil {
		t.Fatalf("Register b: %v", err)
	}
	if _, err := m.Register("c", testRegion()); !errors.Is(err, ErrMonitorCapacity) {
		t.Fatalf("Register c = %v, want ErrMonitorCapacity", err)
	}

	// Replacing a registered id does not consume a slot.
	if _, err := m.Register("a", testRegion()); err != nil {
		t.Fatalf("re-Register a: %v", err)
	}
	if got := m.MonitoredRegionIDs(); fmt.Sprint(got) != "[a b]" {
		t.Fatalf("MonitoredRegionIDs = %v, want [a b]", got)
	}
}

func TestSimulatedRegionsCrossings(t *testing.T) {
	m := NewSimulatedRegions(4)
	rec := &crossingRecorder{}
	m.SetHandler(rec.record)

	h, err := m.Register("a", testRegion())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	m.Enter("a")
	m.Enter("a") // duplicate crossing, collapsed
	m.Exit("a")
	m.Enter("unknown") // never registered, no event

	want := []string{"a/entered", "a/exited"}
	if got := rec.all(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}

	// No events once unregistered.
	m.Cancel(h)
	m.Enter("a")
	if got := rec.all(); len(got) != 2 {
		t.Fatalf("events after cancel = %v", got)
	}
}
