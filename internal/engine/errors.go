// Package engine holds the failure sentinels shared by the trigger engines.
package engine

import "errors"

var (
	// ErrPermissionDenied means the required OS permission is not granted.
	// Recoverable once the user grants it; never retried automatically.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNothingToSchedule means the rule has no future fire instant
	// (a once rule already in the past). Not a failure: the reminder
	// persists, it just has no live task.
	ErrNothingToSchedule = errors.New("nothing to schedule")

	// ErrCapacityExceeded means the region-monitoring ceiling is reached.
	// Freeing a slot requires disabling another location reminder.
	ErrCapacityExceeded = errors.New("region capacity exceeded")
)
