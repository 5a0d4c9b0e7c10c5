// Package geoengine manages region-monitoring registrations against a
// capacity-limited monitoring service.
//
// The slot pool is the one truly contended resource in the scheduler: the
// engine tracks its own count and fails fast with ErrCapacityExceeded
// instead of relying on the platform's own, slower rejection. Eviction is
// deliberately not implemented here; if the coordinator wants LRU eviction
// it must deactivate another reminder first.
package geoengine

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/StephTapera/AMENAPP-sub020/internal/engine"
	"github.com/StephTapera/AMENAPP-sub020/internal/platform"
	"github.com/StephTapera/AMENAPP-sub020/internal/reminder"
	"github.com/StephTapera/AMENAPP-sub020/pkg/logx"
)

// FiredFunc receives entry/exit events that passed the reminder's
// notify-on-entry/exit filter. Called outside engine locks.
type FiredFunc func(id string, firedAt time.Time, kind platform.RegionEventKind)

type Config struct {
	// Capacity caps simultaneously watched regions. Zero means
	// platform.DefaultRegionCapacity.
	Capacity int
}

type watch struct {
	handle  platform.RegionHandle
	onEntry bool
	onExit  bool
}

// Slots reports geofence slot usage for snapshots.
type Slots struct {
	Used     int
	Capacity int
}

type Service struct {
	log      logx.Logger
	monitor  platform.RegionMonitor
	perms    platform.PermissionProvider
	clk      clock.Clock
	capacity int

	mu      sync.Mutex
	watches map[string]*watch
	onFired FiredFunc
}

func New(cfg Config, monitor platform.RegionMonitor, perms platform.PermissionProvider, clk clock.Clock, log logx.Logger) *Service {
	if clk == nil {
		clk = clock.New()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = platform.DefaultRegionCapacity
	}
	s := &Service{
		log:      log,
		monitor:  monitor,
		perms:    perms,
		clk:      clk,
		capacity: capacity,
		watches:  map[string]*watch{},
	}
	monitor.SetHandler(s.handleEvent)
	return s
}

// SetFiredHandler installs the delivery callback. Must be called before the
// first Activate.
func (s *Service) SetFiredHandler(fn FiredFunc) {
	s.mu.Lock()
	s.onFired = fn
	s.mu.Unlock()
}

// Activate registers the reminder's region for monitoring. At the capacity
// ceiling it fails without mutating the engine's count; it never evicts
// another reminder's region.
func (s *Service) Activate(r reminder.Reminder) error {
	if r.Location == nil {
		return fmt.Errorf("reminder %s has no location", r.ID)
	}
	if st := s.perms.Location(); st != platform.PermissionGranted {
		return fmt.Errorf("%w: location permission is %s", engine.ErrPermissionDenied, st)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Replacing an existing watch never needs a new slot.
	if _, exists := s.watches[r.ID]; !exists && len(s.watches) >= s.capacity {
		return fmt.Errorf("%w: %d regions watched", engine.ErrCapacityExceeded, len(s.watches))
	}
	h, err := s.monitor.Register(r.ID, *r.Location)
	if err != nil {
		return fmt.Errorf("%w: %s", engine.ErrCapacityExceeded, err)
	}
	s.watches[r.ID] = &watch{
		handle:  h,
		onEntry: r.Location.NotifyOnEntry,
		onExit:  r.Location.NotifyOnExit,
	}
	s.log.Debug("region watch registered",
		logx.String("id", r.ID),
		logx.Float64("lat", r.Location.Latitude),
		logx.Float64("lon", r.Location.Longitude),
		logx.Float64("radius_m", r.Location.RadiusMeters))
	return nil
}

// Deactivate unregisters the region for id. No-op when none exists.
func (s *Service) Deactivate(id string) {
	s.mu.Lock()
	w, ok := s.watches[id]
	if ok {
		s.monitor.Cancel(w.handle)
		delete(s.watches, id)
	}
	s.mu.Unlock()
	if ok {
		s.log.Debug("region watch cancelled", logx.String("id", id))
	}
}

// handleEvent filters platform crossings against the reminder's entry/exit
// flags before surfacing; events the reminder did not ask for are dropped.
func (s *Service) handleEvent(id string, kind platform.RegionEventKind) {
	firedAt := s.clk.Now()

	s.mu.Lock()
	w, ok := s.watches[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	wanted := (kind == platform.RegionEntered && w.onEntry) ||
		(kind == platform.RegionExited && w.onExit)
	fn := s.onFired
	s.mu.Unlock()

	if !wanted {
		s.log.Debug("region event filtered", logx.String("id", id), logx.String("kind", kind.String()))
		return
	}
	s.log.Debug("region event fired", logx.String("id", id), logx.String("kind", kind.String()))
	if fn != nil {
		fn(id, firedAt, kind)
	}
}

// Active reports whether id currently holds a live watch.
func (s *Service) Active(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.watches[id]
	return ok
}

func (s *Service) Slots() Slots {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Slots{Used: len(s.watches), Capacity: s.capacity}
}

// Close unregisters every watch the engine owns.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range s.watches {
		s.monitor.Cancel(w.handle)
		delete(s.watches, id)
	}
}
