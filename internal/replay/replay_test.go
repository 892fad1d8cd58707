package replay

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSeenAndRecord(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(time.Minute)
	s.now = func() time.Time { return now }

	if s.Seen(1) {
		t.Fatal("unrecorded update reported as seen")
	}
	if s.Len() != 0 {
		t.Fatal("Seen must not record")
	}
	if !s.Record(1) {
		t.Fatal("first Record should succeed")
	}
	if !s.Seen(1) {
		t.Fatal("second delivery inside window not detected")
	}
	if s.Record(1) {
		t.Fatal("Record inside window should report a duplicate")
	}
	if s.Seen(2) {
		t.Fatal("different update_id reported as seen")
	}

	now = now.Add(time.Minute)
	if s.Seen(1) {
		t.Fatal("delivery after window should be accepted")
	}
	if !s.Record(1) {
		t.Fatal("Record after window should succeed")
	}
}

func TestPrune(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(time.Minute)
	s.now = func() time.Time { return now }

	s.Record(1)
	s.Record(2)
	now = now.Add(40 * time.Second)
	s.Record(3)

	if removed := s.Prune(now.Add(30 * time.Second)); removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestDefaultWindow(t *testing.T) {
	if got := NewStore(0).Window(); got != DefaultWindow {
		t.Errorf("Window = %v, want %v", got, DefaultWindow)
	}
}

func TestRecordConcurrent(t *testing.T) {
	s := NewStore(time.Minute)

	var wg sync.WaitGroup
	var firsts atomic.Int32
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Record(7) {
				firsts.Add(1)
			}
		}()
	}
	wg.Wait()

	if firsts.Load() != 1 {
		t.Errorf("update accepted %d times, want exactly once", firsts.Load())
	}
}
