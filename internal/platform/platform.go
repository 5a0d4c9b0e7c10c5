// Package platform defines the OS-facing collaborator interfaces the
// scheduling core depends on, plus in-process implementations used by tests
// and the demo shell. A production build binds these interfaces to the real
// OS notification/location frameworks.
package platform

import (
	"errors"
	"time"

	"github.com/StephTapera/AMENAPP-sub020/internal/reminder"
)

// ErrMonitorCapacity is returned by RegionMonitor.Register when the platform
// ceiling on simultaneously monitored regions is reached.
var ErrMonitorCapacity = errors.New("region monitor capacity reached")

// PermissionState mirrors the OS permission model.
type PermissionState int

const (
	PermissionNotDetermined PermissionState = iota
	PermissionGranted
	PermissionDenied
)

func (s PermissionState) String() string {
	switch s {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "not_determined"
	}
}

// PermissionProvider exposes the current permission state. The core only
// reads it and reacts to denial; the permission UI lives in the shell.
type PermissionProvider interface {
	Notification() PermissionState
	Location() PermissionState
}

// TimeHandle is the opaque handle for one registered wall-clock fire.
type TimeHandle struct {
	id  string
	ver uint64
}

// TimeTriggers is the platform's single-shot wall-clock primitive.
// Registering an id again replaces the previous registration. Re-arming
// repeating rules is the time engine's responsibility.
type TimeTriggers interface {
	// SetHandler installs the delivery callback. Must be called before
	// the first Register.
	SetHandler(fn func(id string))
	Register(id string, fireAt time.Time) (TimeHandle, error)
	Cancel(h TimeHandle)
}

// RegionEventKind discriminates geofence boundary crossings.
type RegionEventKind int

const (
	RegionEntered RegionEventKind = iota
	RegionExited
)

func (k RegionEventKind) String() string {
	if k == RegionEntered {
		return "entered"
	}
	return "exited"
}

// RegionHandle is the opaque handle for one monitored region.
type RegionHandle struct {
	id  string
	ver uint64
}

// RegionMonitor is the platform's region-monitoring primitive. Slots are a
// scarce shared resource; Register fails with ErrMonitorCapacity at the
// ceiling. Registering an id again replaces the previous region without
// consuming a new slot. Entry/exit events are only delivered for registered
// regions.
type RegionMonitor interface {
	SetHandler(fn func(id string, kind RegionEventKind))
	Register(id string, region reminder.GeoRegion) (RegionHandle, error)
	Cancel(h RegionHandle)
	MonitoredRegionIDs() []string
}
