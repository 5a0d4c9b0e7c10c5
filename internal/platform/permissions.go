package platform

import "sync"

// StaticPermissions is a PermissionProvider with settable state, standing in
// for the OS permission system in tests and the demo shell.
type StaticPermissions struct {
	mu           sync.Mutex
	notification PermissionState
	location     PermissionState
}

func NewStaticPermissions(notification, location PermissionState) *StaticPermissions {
	return &StaticPermissions{notification: notification, location: location}
}

func (p *StaticPermissions) Notification() PermissionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notification
}

func (p *StaticPermissions) Location() PermissionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location
}

func (p *StaticPermissions) SetNotification(s PermissionState) {
	p.mu.Lock()
	p.notification = s
	p.mu.Unlock()
}

func (p *StaticPermissions) SetLocation(s PermissionState) {
	p.mu.Lock()
	p.location = s
	p.mu.Unlock()
}

// RequestNotification simulates the OS prompt: a not-determined state is
// promoted to granted, any other state is left as-is.
func (p *StaticPermissions) RequestNotification() PermissionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.notification == PermissionNotDetermined {
		p.notification = PermissionGranted
	}
	return p.notification
}

// RequestLocation simulates the OS prompt for location access.
func (p *StaticPermissions) RequestLocation() PermissionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.location == PermissionNotDetermined {
		p.location = PermissionGranted
	}
	return p.location
}
