package scheduler

import "sync"

// idLocks serializes operations per reminder id while letting different ids
// proceed in parallel. Entries are reference-counted and removed when idle.
type idLocks struct {
	mu    sync.Mutex
	locks map[string]*idLock
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

func newIDLocks() *idLocks {
	return &idLocks{locks: map[string]*idLock{}}
}

// acquire blocks until the id's lock is held and returns the release func.
func (l *idLocks) acquire(id string) func() {
	l.mu.Lock()
	e := l.locks[id]
	if e == nil {
		e = &idLock{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.locks, id)
			}
			l.mu.Unlock()
		})
	}
}
