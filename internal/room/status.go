package room

import "time"

// StatusKind identifies the active variant of a room's playback status.
type StatusKind int

const (
	KindPlaying StatusKind = iota
	KindPaused
	KindSuspended
)

func (k StatusKind) String() string {
	switch k {
	case KindPlaying:
		return "playing"
	case KindPaused:
		return "paused"
	case KindSuspended:
		return "suspended"
	}
	return "unknown"
}

// Status is the shared playback state of a room: a tagged variant over
// playing/paused/suspended. All variants carry the playback position and the
// current file index. The playing variant additionally carries a monotonic
// reference instant so its observable position advances with real time; the
// suspended variant carries the set of connections that requested the
// suspension and the kind to resume once that set empties.
//
// Status is not safe for concurrent use; the owning Room serializes access.
type Status struct {
	kind       StatusKind
	videoTime  float64 // stored position, seconds
	fileInd    int
	startedAt  time.Time        // playing: instant videoTime was stored
	suspenders map[int]struct{} // suspended only
	resumeTo   StatusKind       // suspended only: playing or paused

	now func() time.Time
}

// NewPausedStatus creates a paused status at the given position and file.
// Rooms rehydrate from their durable record through this constructor.
func NewPausedStatus(videoTime float64, fileInd int) *Status {
	if videoTime < 0 {
		videoTime = 0
	}
	if fileInd < 0 {
		fileInd = 0
	}
	return &Status{
		kind:      KindPaused,
		videoTime: videoTime,
		fileInd:   fileInd,
		now:       time.Now,
	}
}

// Kind returns the active variant.
func (s *Status) Kind() StatusKind { return s.kind }

// FileIndex returns the current file index.
func (s *Status) FileIndex() int { return s.fileInd }

// VideoTime returns the observable playback position in seconds. While
// playing it is the stored position plus the time elapsed since it was
// stored; otherwise it is the stored position itself.
func (s *Status) VideoTime() float64 {
	if s.kind == KindPlaying {
		return s.videoTime + s.now().Sub(s.startedAt).Seconds()
	}
	return s.videoTime
}

// SetVideoTime stores a new playback position. While playing, the monotonic
// reference is reset so the observable position restarts from t.
func (s *Status) SetVideoTime(t float64) {
	if t < 0 {
		t = 0
	}
	s.videoTime = t
	if s.kind == KindPlaying {
		s.startedAt = s.now()
	}
}

// SetFileIndex switches the current file. Switching to the already-current
// index is a no-op and reports false. Otherwise the status is forced to
// paused at position zero and the method reports true.
func (s *Status) SetFileIndex(fileInd int) bool {
	if fileInd < 0 || fileInd == s.fileInd {
		return false
	}
	s.fileInd = fileInd
	s.kind = KindPaused
	s.videoTime = 0
	s.suspenders = nil
	return true
}

// SetPlay transitions paused to playing. Any other variant is unchanged.
func (s *Status) SetPlay() {
	if s.kind != KindPaused {
		return
	}
	s.kind = KindPlaying
	s.startedAt = s.now()
}

// SetPause transitions any variant to paused, preserving the observable
// position. Applying pause to an already-paused status is harmless.
func (s *Status) SetPause() {
	s.videoTime = s.VideoTime()
	s.kind = KindPaused
	s.suspenders = nil
}

// AddSuspendBy records that the given connection requested a suspension.
// A non-suspended status is promoted first: the observable position is
// frozen and the current kind becomes the resume target. Adding the same id
// twice has no further effect.
func (s *Status) AddSuspendBy(connID int) {
	if s.kind != KindSuspended {
		s.resumeTo = s.kind
		s.videoTime = s.VideoTime()
		s.kind = KindSuspended
		s.suspenders = make(map[int]struct{})
	}
	s.suspenders[connID] = struct{}{}
}

// SetResumeTarget overrides the kind restored when the suspender set
// empties. It has no effect outside the suspended variant.
func (s *Status) SetResumeTarget(kind StatusKind) {
	if s.kind != KindSuspended || kind == KindSuspended {
		return
	}
	s.resumeTo = kind
}

// RemoveSuspendBy drops the given connection from the suspender set; absent
// ids are tolerated. When the set empties the status transitions to the
// resume target, keeping position and file index.
func (s *Status) RemoveSuspendBy(connID int) {
	if s.kind != KindSuspended {
		return
	}
	delete(s.suspenders, connID)
	if len(s.suspenders) > 0 {
		return
	}
	s.suspenders = nil
	s.kind = s.resumeTo
	if s.kind == KindPlaying {
		s.startedAt = s.now()
	}
}

// SuspenderCount reports how many connections currently hold a suspension.
func (s *Status) SuspenderCount() int { return len(s.suspenders) }

// ServerFrame renders the wire frame announcing this status to viewers.
func (s *Status) ServerFrame() string {
	switch s.kind {
	case KindPlaying:
		return playFrame(s.VideoTime())
	case KindSuspended:
		return suspendFrame(s.VideoTime())
	default:
		return pauseFrame(s.VideoTime())
	}
}
