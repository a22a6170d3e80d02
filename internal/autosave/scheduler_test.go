package autosave

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/DavidROliverBA/bac4-sub000/internal/testutil"
)

func TestScheduleLastWriteWins(t *testing.T) {
	s := New(20*time.Millisecond, testutil.Logger())
	defer s.Close()

	var got atomic.Int32
	for i := 1; i <= 5; i++ {
		i := i
		s.Schedule("d.diagram.json", func() error {
			got.Store(int32(i))
			return nil
		})
	}

	deadline := time.After(2 * time.Second)
	for got.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("write never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got.Load() != 5 {
		t.Errorf("fired write = %d, want the last scheduled (5)", got.Load())
	}
}

func TestScheduleIsPerPath(t *testing.T) {
	s := New(10*time.Millisecond, testutil.Logger())
	defer s.Close()

	var a, b atomic.Int32
	s.Schedule("a.diagram.json", func() error { a.Add(1); return nil })
	s.Schedule("b.diagram.json", func() error { b.Add(1); return nil })

	deadline := time.After(2 * time.Second)
	for a.Load() == 0 || b.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("writes did not fire: a=%d b=%d", a.Load(), b.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestFlushRunsImmediately(t *testing.T) {
	s := New(time.Hour, testutil.Logger())
	defer s.Close()

	var fired atomic.Int32
	s.Schedule("d.diagram.json", func() error { fired.Add(1); return nil })

	if err := s.Flush("d.diagram.json"); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if fired.Load() != 1 {
		t.Errorf("fired = %d, want 1", fired.Load())
	}

	// Nothing pending anymore; a second flush is a no-op.
	if err := s.Flush("d.diagram.json"); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if fired.Load() != 1 {
		t.Errorf("flush fired a consumed write: %d", fired.Load())
	}
}

func TestCloseFlushesPendingWrites(t *testing.T) {
	s := New(time.Hour, testutil.Logger())

	var fired atomic.Int32
	s.Schedule("a.diagram.json", func() error { fired.Add(1); return nil })
	s.Schedule("b.diagram.json", func() error { fired.Add(1); return nil })

	s.Close()
	if fired.Load() != 2 {
		t.Errorf("fired = %d, want 2", fired.Load())
	}

	// A closed scheduler silently drops new work.
	s.Schedule("c.diagram.json", func() error { fired.Add(1); return nil })
	_ = s.Flush("c.diagram.json")
	if fired.Load() != 2 {
		t.Errorf("closed scheduler accepted work: fired = %d", fired.Load())
	}
}
