package scheduler

import "errors"

// ErrNotFound means the reminder id is unknown to the store.
var ErrNotFound = errors.New("reminder not found")
