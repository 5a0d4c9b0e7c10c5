package reminder

import (
	"fmt"
	"strings"
	"time"
)

// TriggerType selects which engine(s) drive a reminder.
//
// The trigger type is fixed at creation. Changing it requires delete+recreate.
type TriggerType string

const (
	TriggerTime     TriggerType = "time"
	TriggerLocation TriggerType = "location"
	TriggerHybrid   TriggerType = "hybrid"
)

func (t TriggerType) Valid() bool {
	switch t {
	case TriggerTime, TriggerLocation, TriggerHybrid:
		return true
	}
	return false
}

// Reminder is the aggregate root persisted by the store and scheduled by the
// trigger engines.
//
// Field presence follows the trigger type:
//   - time:     Schedule set, Location nil
//   - location: Location set, Schedule nil
//   - hybrid:   both set
type Reminder struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"owner_id"`
	Title     string      `json:"title"`
	Trigger   TriggerType `json:"trigger"`
	Schedule  *Rule       `json:"schedule,omitempty"`
	Location  *GeoRegion  `json:"location,omitempty"`
	Enabled   bool        `json:"enabled"`
	CreatedAt time.Time   `json:"created_at"`
}

// HasTimeTrigger reports whether the time engine is responsible for r.
func (r Reminder) HasTimeTrigger() bool {
	return r.Trigger == TriggerTime || r.Trigger == TriggerHybrid
}

// HasLocationTrigger reports whether the geofence engine is responsible for r.
func (r Reminder) HasLocationTrigger() bool {
	return r.Trigger == TriggerLocation || r.Trigger == TriggerHybrid
}

// Validate checks the aggregate invariants. It returns a *ValidationError
// naming the first violated field.
func (r Reminder) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return &ValidationError{Field: "id", Reason: "required"}
	}
	if strings.TrimSpace(r.OwnerID) == "" {
		return &ValidationError{Field: "owner_id", Reason: "required"}
	}
	if strings.TrimSpace(r.Title) == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	if !r.Trigger.Valid() {
		return &ValidationError{Field: "trigger", Reason: fmt.Sprintf("unknown trigger type %q", string(r.Trigger))}
	}

	if r.HasTimeTrigger() {
		if r.Schedule == nil {
			return &ValidationError{Field: "schedule", Reason: "required for trigger type " + string(r.Trigger)}
		}
		if err := r.Schedule.Validate(); err != nil {
			return err
		}
	} else if r.Schedule != nil {
		return &ValidationError{Field: "schedule", Reason: "must be empty for trigger type " + string(r.Trigger)}
	}

	if r.HasLocationTrigger() {
		if r.Location == nil {
			return &ValidationError{Field: "location", Reason: "required for trigger type " + string(r.Trigger)}
		}
		if err := r.Location.Validate(); err != nil {
			return err
		}
	} else if r.Location != nil {
		return &ValidationError{Field: "location", Reason: "must be empty for trigger type " + string(r.Trigger)}
	}

	return nil
}

// ValidationError identifies the first invariant a definition violates.
// It is never retried; the caller must fix the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid reminder: " + e.Field + ": " + e.Reason
}
