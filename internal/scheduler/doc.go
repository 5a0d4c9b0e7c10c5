// Package scheduler is the public façade of the reminder scheduling engine.
//
// # Overview
//
// The Service routes create/update/toggle/delete operations to the time and
// geofence trigger engines based on each reminder's trigger type, persists
// the records through the store, and republishes engine fires as domain
// events on an in-memory bus. Hybrid reminders are driven by both engines
// independently; a failure to activate one half never rolls back the other,
// it is reported as a structured partial result instead.
//
// # Ordering
//
// Operations touching the same reminder id are serialized; operations on
// different ids run in parallel. For a single id the most recently completed
// call wins, and a delete always converges to "deactivated" even when it
// races an in-flight fire.
//
// # Lifecycle
//
// Construct with New, call Rehydrate once at process start to rebuild live
// tasks from persisted state, and Close on shutdown to release every
// platform registration.
package scheduler
