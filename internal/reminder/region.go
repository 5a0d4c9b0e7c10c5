package reminder

import "fmt"

// MaxRadiusMeters is the largest monitorable region radius. OS region
// monitoring caps both the radius and the number of simultaneously watched
// regions, so oversized regions are rejected up front.
const MaxRadiusMeters = 10_000.0

// GeoRegion is a circular area monitored for entry/exit.
type GeoRegion struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`

	NotifyOnEntry bool `json:"notify_on_entry"`
	NotifyOnExit  bool `json:"notify_on_exit"`
}

func (g GeoRegion) Validate() error {
	if g.Latitude < -90 || g.Latitude > 90 {
		return &ValidationError{Field: "location.latitude", Reason: fmt.Sprintf("%v out of range -90..90", g.Latitude)}
	}
	if g.Longitude < -180 || g.Longitude > 180 {
		return &ValidationError{Field: "location.longitude", Reason: fmt.Sprintf("%v out of range -180..180", g.Longitude)}
	}
	if g.RadiusMeters <= 0 {
		return &ValidationError{Field: "location.radius_meters", Reason: "must be positive"}
	}
	if g.RadiusMeters > MaxRadiusMeters {
		return &ValidationError{Field: "location.radius_meters", Reason: fmt.Sprintf("%v exceeds maximum %v", g.RadiusMeters, MaxRadiusMeters)}
	}
	if !g.NotifyOnEntry && !g.NotifyOnExit {
		return &ValidationError{Field: "location", Reason: "at least one of notify_on_entry/notify_on_exit required"}
	}
	return nil
}
