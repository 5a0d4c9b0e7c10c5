package scheduler

import (
	"sort"

	"github.com/StephTapera/AMENAPP-sub020/internal/engine/geoengine"
	"github.com/StephTapera/AMENAPP-sub020/internal/engine/timeengine"
)

// Snapshot is a point-in-time view of the live schedule, for status
// endpoints and debugging.
type Snapshot struct {
	TimeTasks []timeengine.TaskInfo `json:"time_tasks"`
	Geofence  geoengine.Slots       `json:"geofence"`
}

func (s *Service) Snapshot() Snapshot {
	tasks := s.time.Snapshot()
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return Snapshot{
		TimeTasks: tasks,
		Geofence:  s.geo.Slots(),
	}
}
