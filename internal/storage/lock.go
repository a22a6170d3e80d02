package storage

import "sync"

// PathLocker serializes read-modify-write sequences per document path.
// Operations against different documents proceed independently.
type PathLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPathLocker creates an empty locker.
func NewPathLocker() *PathLocker {
	return &PathLocker{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for path, creating it on first use.
func (l *PathLocker) Lock(path string) {
	l.mu.Lock()
	m, ok := l.locks[path]
	if !ok {
		m = &sync.Mutex{}
		l.locks[path] = m
	}
	l.mu.Unlock()
	m.Lock()
}

// Unlock releases the mutex for path. The mutex must be held.
func (l *PathLocker) Unlock(path string) {
	l.mu.Lock()
	m := l.locks[path]
	l.mu.Unlock()
	if m != nil {
		m.Unlock()
	}
}

// With runs fn while holding the lock for path.
func (l *PathLocker) With(path string, fn func() error) error {
	l.Lock(path)
	defer l.Unlock(path)
	return fn()
}
