package platform

import (
	"errors"
	"sort"
	"sync"

	"github.com/StephTapera/AMENAPP-sub020/internal/reminder"
)

// DefaultRegionCapacity mirrors typical OS region-monitoring ceilings
// (tens of regions, not hundreds).
const DefaultRegionCapacity = 20

type regionState struct {
	region reminder.GeoRegion
	ver    uint64
	// inside is nil until the first observed crossing; devices may start
	// either inside or outside a region.
	inside *bool
}

// SimulatedRegions implements RegionMonitor in memory. Tests and the demo
// shell drive it by calling Enter/Exit; a production build replaces it with
// a binding to the OS location framework.
type SimulatedRegions struct {
	capacity int

	mu      sync.Mutex
	handler func(id string, kind RegionEventKind)
	regions map[string]*regionState
	seq     uint64
}

func NewSimulatedRegions(capacity int) *SimulatedRegions {
	if capacity <= 0 {
		capacity = DefaultRegionCapacity
	}
	return &SimulatedRegions{
		capacity: capacity,
		regions:  map[string]*regionState{},
	}
}

func (m *SimulatedRegions) SetHandler(fn func(id string, kind RegionEventKind)) {
	m.mu.Lock()
	m.handler = fn
	m.mu.Unlock()
}

func (m *SimulatedRegions) Capacity() int { return m.capacity }

func (m *SimulatedRegions) Register(id string, region reminder.GeoRegion) (RegionHandle, error) {
	if id == "" {
		return RegionHandle{}, errors.New("region id required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Replacing an existing registration does not consume a new slot.
	if _, ok := m.regions[id]; !ok && len(m.regions) >= m.capacity {
		return RegionHandle{}, ErrMonitorCapacity
	}
	m.seq++
	m.regions[id] = &regionState{region: region, ver: m.seq}
	return RegionHandle{id: id, ver: m.seq}, nil
}

func (m *SimulatedRegions) Cancel(h RegionHandle) {
	if h.id == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.regions[h.id]; ok && st.ver == h.ver {
		delete(m.regions, h.id)
	}
}

func (m *SimulatedRegions) MonitoredRegionIDs() []string {
	m.mu.Lock()
	ids := make([]string, 0, len(m.regions))
	for id := range m.regions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Enter simulates the device crossing into the region registered under id.
// Events are only produced while the region is registered, and repeated
// crossings in the same direction are collapsed.
func (m *SimulatedRegions) Enter(id string) { m.cross(id, RegionEntered) }

// Exit simulates the device leaving the region registered under id.
func (m *SimulatedRegions) Exit(id string) { m.cross(id, RegionExited) }

func (m *SimulatedRegions) cross(id string, kind RegionEventKind) {
	inside := kind == RegionEntered

	m.mu.Lock()
	st, ok := m.regions[id]
	if !ok || (st.inside != nil && *st.inside == inside) {
		m.mu.Unlock()
		return
	}
	st.inside = &inside
	fn := m.handler
	m.mu.Unlock()

	if fn != nil {
		fn(id, kind)
	}
}
