// Package autosave debounces document writes: edits accumulate in
// memory and the write fires after an idle delay. Scheduling again for
// the same path before the delay elapses cancels the pending write and
// replaces it, so the last scheduled write always wins and always
// reflects the latest state.
package autosave

import (
	"log/slog"
	"sync"
	"time"
)

// WriteFunc persists the latest in-memory state for one path.
type WriteFunc func() error

type pending struct {
	timer *time.Timer
	fn    WriteFunc
}

// Scheduler coalesces writes per path.
type Scheduler struct {
	delay  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*pending
	closed  bool
}

// New creates a scheduler with the given idle delay.
func New(delay time.Duration, logger *slog.Logger) *Scheduler {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Scheduler{
		delay:   delay,
		logger:  logger,
		pending: make(map[string]*pending),
	}
}

// Schedule queues fn to run after the idle delay. A pending write for
// the same path is cancelled and replaced.
func (s *Scheduler) Schedule(path string, fn WriteFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if p, ok := s.pending[path]; ok {
		p.fn = fn
		p.timer.Reset(s.delay)
		return
	}
	p := &pending{fn: fn}
	p.timer = time.AfterFunc(s.delay, func() { s.fire(path) })
	s.pending[path] = p
}

func (s *Scheduler) fire(path string) {
	s.mu.Lock()
	p, ok := s.pending[path]
	if ok {
		delete(s.pending, path)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := p.fn(); err != nil {
		s.logger.Error("autosave failed",
			slog.String("path", path), slog.String("error", err.Error()))
	}
}

// Flush runs the pending write for path immediately, if any.
func (s *Scheduler) Flush(path string) error {
	s.mu.Lock()
	p, ok := s.pending[path]
	if ok {
		p.timer.Stop()
		delete(s.pending, path)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return p.fn()
}

// Close flushes everything still pending and stops the scheduler.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	paths := make([]string, 0, len(s.pending))
	writes := make([]*pending, 0, len(s.pending))
	for path, p := range s.pending {
		p.timer.Stop()
		paths = append(paths, path)
		writes = append(writes, p)
	}
	s.pending = make(map[string]*pending)
	s.mu.Unlock()

	for i, p := range writes {
		if err := p.fn(); err != nil {
			s.logger.Error("autosave flush on close failed",
				slog.String("path", paths[i]), slog.String("error", err.Error()))
		}
	}
}
