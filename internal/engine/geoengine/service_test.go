package geoengine

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/StephTapera/AMENAPP-sub020/internal/engine"
	"github.com/StephTapera/AMENAPP-sub020/internal/platform"
	"github.com/StephTapera/AMENAPP-sub020/internal/reminder"
	"github.com/StephTapera/AMENAPP-sub020/pkg/logx"
)

type geoEvent struct {
	id   string
	kind platform.RegionEventKind
}

type eventLog struct {
	mu     sync.Mutex
	events []geoEvent
}

func (e *eventLog) add(id string, _ time.Time, kind platform.RegionEventKind) {
	e.mu.Lock()
	e.events = append(e.events, geoEvent{id: id, kind: kind})
	e.mu.Unlock()
}

func (e *eventLog) all() []geoEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]geoEvent(nil), e.events...)
}

func newTestEngine(capacity int, locPerm platform.PermissionState) (*Service, *platform.SimulatedRegions, *eventLog) {
	monitor := platform.NewSimulatedRegions(capacity)
	perms := platform.NewStaticPermissions(platform.PermissionGranted, locPerm)
	svc := New(Config{Capacity: capacity}, monitor, perms, clock.NewMock(), logx.Nop())

	events := &eventLog{}
	svc.SetFiredHandler(events.add)
	return svc, monitor, events
}

func geoReminder(id string, onEntry, onExit bool) reminder.Reminder {
	return reminder.Reminder{
		ID:      id,
		OwnerID: "owner-1",
		Title:   "g",
		Trigger: reminder.TriggerLocation,
		Location: &reminder.GeoRegion{
			Latitude:      -17.83,
			Longitude:     31.05,
			RadiusMeters:  150,
			NotifyOnEntry: onEntry,
			NotifyOnExit:  onExit,
		},
		Enabled: true,
	}
}

func TestCapacityCeiling(t *testing.T) {
	svc, _, _ := newTestEngine(3, platform.PermissionGranted)

	for i := 0; i < 3; i++ {
		if err := svc.Activate(geoReminder(fmt.Sprintf("g%d", i), true, false)); err != nil {
			t.Fatalf("Activate g%d: %v", i, err)
		}
	}
	err := svc.Activate(geoReminder("g3", true, false))
	if !errors.Is(err, engine.ErrCapacityExceeded) {
		t.Fatalf("Activate over capacity = %v, want ErrCapacityExceeded", err)
	}
	// The failed activation must not disturb the slot count.
	if got := svc.Slots(); got.Used != 3 || got.Capacity != 3 {
		t.Fatalf("slots = %+v, want 3/3", got)
	}

	// Replacing a watched id needs no free slot.
	if err := svc.Activate(geoReminder("g1", false, true)); err != nil {
		t.Fatalf("replace at capacity: %v", err)
	}
	// Freeing one slot admits the rejected reminder.
	svc.Deactivate("g0")
	if err := svc.Activate(geoReminder("g3", true, false)); err != nil {
		t.Fatalf("Activate after free: %v", err)
	}
}

func TestEntryExitFiltering(t *testing.T) {
	svc, monitor, events := newTestEngine(10, platform.PermissionGranted)

	if err := svc.Activate(geoReminder("entry-only", true, false)); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := svc.Activate(geoReminder("exit-only", false, true)); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	monitor.Enter("entry-only")
	monitor.Exit("entry-only") // filtered
	monitor.Enter("exit-only") // filtered
	monitor.Exit("exit-only")

	got := events.all()
	want := []geoEvent{
		{id: "entry-only", kind: platform.RegionEntered},
		{id: "exit-only", kind: platform.RegionExited},
	}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDeactivateStopsEvents(t *testing.T) {
	svc, monitor, events := newTestEngine(10, platform.PermissionGranted)

	if err := svc.Activate(geoReminder("g", true, true)); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	svc.Deactivate("g")
	svc.Deactivate("g") // idempotent

	monitor.Enter("g")
	monitor.Exit("g")
	if got := events.all(); len(got) != 0 {
		t.Fatalf("events after deactivate: %v", got)
	}
	if svc.Active("g") {
		t.Fatal("Active true after deactivate")
	}
}

func TestPermissionDenied(t *testing.T) {
	svc, _, _ := newTestEngine(10, platform.PermissionDenied)

	err := svc.Activate(geoReminder("g", true, false))
	if !errors.Is(err, engine.ErrPermissionDenied) {
		t.Fatalf("Activate = %v, want ErrPermissionDenied", err)
	}
	if got := svc.Slots(); got.Used != 0 {
		t.Fatalf("denied activation consumed a slot: %+v", got)
	}
}

func TestCloseUnwatchesEverything(t *testing.T) {
	svc, monitor, events := newTestEngine(10, platform.PermissionGranted)

	if err := svc.Activate(geoReminder("g", true, true)); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	svc.Close()

	monitor.Enter("g")
	if got := events.all(); len(got) != 0 {
		t.Fatalf("events after Close: %v", got)
	}
	if ids := monitor.MonitoredRegionIDs(); len(ids) != 0 {
		t.Fatalf("regions still monitored after Close: %v", ids)
	}
}
