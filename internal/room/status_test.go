package room

import (
	"testing"
	"time"
)

// fakeClock yields a controllable instant for deterministic time math.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStatus(videoTime float64, fileInd int, clock *fakeClock) *Status {
	s := NewPausedStatus(videoTime, fileInd)
	s.now = clock.Now
	return s
}

func TestStatusPlayingTimeAdvances(t *testing.T) {
	clock := newFakeClock()
	s := newTestStatus(10, 0, clock)

	s.SetPlay()
	clock.Advance(5 * time.Second)

	if got := s.VideoTime(); got != 15 {
		t.Errorf("VideoTime() = %v, want 15", got)
	}

	clock.Advance(2500 * time.Millisecond)
	if got := s.VideoTime(); got != 17.5 {
		t.Errorf("VideoTime() = %v, want 17.5", got)
	}
}

func TestStatusPauseFreezesTime(t *testing.T) {
	clock := newFakeClock()
	s := newTestStatus(0, 0, clock)

	s.SetPlay()
	clock.Advance(8 * time.Second)
	s.SetPause()
	clock.Advance(time.Hour)

	if got := s.VideoTime(); got != 8 {
		t.Errorf("VideoTime() = %v, want 8", got)
	}
	if s.Kind() != KindPaused {
		t.Errorf("Kind() = %v, want paused", s.Kind())
	}
}

func TestStatusSetVideoTimeWhilePlaying(t *testing.T) {
	clock := newFakeClock()
	s := newTestStatus(0, 0, clock)

	s.SetPlay()
	clock.Advance(30 * time.Second)
	s.SetVideoTime(100)
	clock.Advance(3 * time.Second)

	if got := s.VideoTime(); got != 103 {
		t.Errorf("VideoTime() = %v, want 103", got)
	}
}

func TestStatusPlayOnlyFromPaused(t *testing.T) {
	clock := newFakeClock()
	s := newTestStatus(0, 0, clock)

	s.AddSuspendBy(1)
	s.SetPlay()
	if s.Kind() != KindSuspended {
		t.Errorf("Kind() = %v, want suspended after play on suspended", s.Kind())
	}
}

func TestStatusSuspendResume(t *testing.T) {
	clock := newFakeClock()
	s := newTestStatus(20, 0, clock)
	s.SetPlay()
	clock.Advance(4 * time.Second)

	s.AddSuspendBy(1)
	s.AddSuspendBy(2)
	s.AddSuspendBy(1) // duplicate, no-op

	if s.Kind() != KindSuspended {
		t.Fatalf("Kind() = %v, want suspended", s.Kind())
	}
	if got := s.SuspenderCount(); got != 2 {
		t.Errorf("SuspenderCount() = %d, want 2", got)
	}
	clock.Advance(time.Minute)
	if got := s.VideoTime(); got != 24 {
		t.Errorf("VideoTime() = %v, want 24 (frozen)", got)
	}

	s.RemoveSuspendBy(1)
	if s.Kind() != KindSuspended {
		t.Errorf("Kind() = %v, want still suspended with one holder left", s.Kind())
	}

	s.RemoveSuspendBy(2)
	if s.Kind() != KindPlaying {
		t.Errorf("Kind() = %v, want playing restored", s.Kind())
	}
	clock.Advance(time.Second)
	if got := s.VideoTime(); got != 25 {
		t.Errorf("VideoTime() = %v, want 25", got)
	}
}

func TestStatusResumeTargetOverride(t *testing.T) {
	clock := newFakeClock()
	s := newTestStatus(0, 0, clock)
	s.SetPlay()

	s.AddSuspendBy(7)
	s.SetResumeTarget(KindPaused)
	s.RemoveSuspendBy(7)

	if s.Kind() != KindPaused {
		t.Errorf("Kind() = %v, want paused", s.Kind())
	}
}

func TestStatusResumeTargetRejectsSuspended(t *testing.T) {
	clock := newFakeClock()
	s := newTestStatus(0, 0, clock)
	s.AddSuspendBy(1)
	s.SetResumeTarget(KindSuspended)
	s.RemoveSuspendBy(1)
	if s.Kind() != KindPaused {
		t.Errorf("Kind() = %v, want paused", s.Kind())
	}
}

func TestStatusRemoveSuspendByUnknownID(t *testing.T) {
	clock := newFakeClock()
	s := newTestStatus(0, 0, clock)

	s.RemoveSuspendBy(99) // not suspended at all
	if s.Kind() != KindPaused {
		t.Errorf("Kind() = %v, want paused", s.Kind())
	}

	s.AddSuspendBy(1)
	s.RemoveSuspendBy(99) // unknown holder
	if s.Kind() != KindSuspended {
		t.Errorf("Kind() = %v, want suspended", s.Kind())
	}
	if got := s.SuspenderCount(); got != 1 {
		t.Errorf("SuspenderCount() = %d, want 1", got)
	}
}

func TestStatusSetFileIndex(t *testing.T) {
	clock := newFakeClock()
	s := newTestStatus(300, 2, clock)
	s.SetPlay()

	if s.SetFileIndex(2) {
		t.Error("SetFileIndex(current) = true, want false")
	}
	if s.SetFileIndex(-1) {
		t.Error("SetFileIndex(-1) = true, want false")
	}
	if s.Kind() != KindPlaying {
		t.Errorf("Kind() = %v, want playing untouched after rejected switch", s.Kind())
	}

	if !s.SetFileIndex(3) {
		t.Fatal("SetFileIndex(3) = false, want true")
	}
	if s.Kind() != KindPaused {
		t.Errorf("Kind() = %v, want paused after switch", s.Kind())
	}
	if got := s.VideoTime(); got != 0 {
		t.Errorf("VideoTime() = %v, want 0 after switch", got)
	}
	if got := s.FileIndex(); got != 3 {
		t.Errorf("FileIndex() = %d, want 3", got)
	}
}

func TestStatusServerFrame(t *testing.T) {
	clock := newFakeClock()

	tests := []struct {
		name  string
		setup func(s *Status)
		want  string
	}{
		{"paused", func(s *Status) {}, "pa 12.5"},
		{"playing", func(s *Status) { s.SetPlay() }, "pl 12.5"},
		{"suspended", func(s *Status) { s.AddSuspendBy(1) }, "sp 12.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStatus(12.5, 0, clock)
			tt.setup(s)
			if got := s.ServerFrame(); got != tt.want {
				t.Errorf("ServerFrame() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewPausedStatusClampsNegatives(t *testing.T) {
	s := NewPausedStatus(-5, -2)
	if s.VideoTime() != 0 {
		t.Errorf("VideoTime() = %v, want 0", s.VideoTime())
	}
	if s.FileIndex() != 0 {
		t.Errorf("FileIndex() = %d, want 0", s.FileIndex())
	}
}
