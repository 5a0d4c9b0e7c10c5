package scheduler

import (
	"errors"
	"time"

	"github.com/StephTapera/AMENAPP-sub020/internal/engine"
	"github.com/StephTapera/AMENAPP-sub020/internal/reminder"
)

// Definition is the caller-supplied shape of a reminder. The coordinator
// assigns the id and creation timestamp.
type Definition struct {
	OwnerID  string               `json:"owner_id"`
	Title    string               `json:"title"`
	Trigger  reminder.TriggerType `json:"trigger"`
	Schedule *reminder.Rule       `json:"schedule,omitempty"`
	Location *reminder.GeoRegion  `json:"location,omitempty"`
	Enabled  bool                 `json:"enabled"`
}

// FiredSource tells which trigger produced a fired event.
type FiredSource string

const (
	SourceTime          FiredSource = "time"
	SourceLocationEntry FiredSource = "location_entry"
	SourceLocationExit  FiredSource = "location_exit"
)

// FiredEvent is what the application layer observes to render a
// notification. The coordinator never renders content itself.
type FiredEvent struct {
	ReminderID string      `json:"reminder_id"`
	FiredAt    time.Time   `json:"fired_at"`
	Source     FiredSource `json:"source"`
}

// Lifecycle event types published on the coordinator's bus.
const (
	EventCreated = "reminder.created"
	EventUpdated = "reminder.updated"
	EventToggled = "reminder.toggled"
	EventDeleted = "reminder.deleted"
	EventFired   = "reminder.fired"
)

// Event is one reminder lifecycle notification.
type Event struct {
	Type       string    `json:"type"`
	ReminderID string    `json:"reminder_id"`
	Time       time.Time `json:"time"`
	// Fired carries delivery details; set only on EventFired.
	Fired *FiredEvent `json:"fired,omitempty"`
}

// ActivationReport carries the per-engine outcome of activating a reminder.
// For hybrid reminders the halves succeed or fail independently; the report
// is never collapsed into a single boolean.
type ActivationReport struct {
	// TimeErr is the time engine outcome; nil when activation succeeded
	// or the engine was not involved.
	TimeErr error `json:"-"`
	// GeoErr is the geofence engine outcome.
	GeoErr error `json:"-"`
}

// Failed reports whether any involved engine genuinely failed. An exhausted
// once rule (nothing to schedule) counts as success with no live task.
func (r ActivationReport) Failed() bool {
	return failedErr(r.TimeErr) || failedErr(r.GeoErr)
}

// Err returns one representative failure, or nil.
func (r ActivationReport) Err() error {
	if failedErr(r.TimeErr) {
		return r.TimeErr
	}
	if failedErr(r.GeoErr) {
		return r.GeoErr
	}
	return nil
}

func failedErr(err error) bool {
	return err != nil && !errors.Is(err, engine.ErrNothingToSchedule)
}

// RehydrateFailure names one reminder that could not be reactivated.
type RehydrateFailure struct {
	ReminderID string
	Err        error
}

// RehydrateReport summarizes a Rehydrate pass. Individual failures (e.g. a
// permission revoked since last run) are collected, never aborted on.
type RehydrateReport struct {
	Activated int
	Skipped   int // disabled or with nothing left to schedule
	Failures  []RehydrateFailure
}
