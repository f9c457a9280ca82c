package room

import (
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeSink struct {
	mu     sync.Mutex
	frames []string
	fail   bool
}

func (s *fakeSink) Send(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink closed")
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *fakeSink) Frames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.frames...)
}

func (s *fakeSink) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return ""
	}
	return s.frames[len(s.frames)-1]
}

type fakeSource struct {
	files   []string
	fileInd int
}

func (s *fakeSource) AvailableFiles() []string { return s.files }

func (s *fakeSource) SetFileIndex(fileInd int) bool {
	if fileInd < 0 || fileInd >= len(s.files) || fileInd == s.fileInd {
		return false
	}
	s.fileInd = fileInd
	return true
}

func (s *fakeSource) PlayerSource(roomID uuid.UUID) string { return "/files/" + roomID.String() + "/0" }

func (s *fakeSource) ServeVideo(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *fakeSource) Cleanup() error { return nil }

type fakeRecorder struct {
	mu      sync.Mutex
	calls   int
	lastTS  float64
	lastInd int
}

func (r *fakeRecorder) RecordWatchState(_ uuid.UUID, videoTime float64, fileInd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.lastTS = videoTime
	r.lastInd = fileInd
	return nil
}

func newTestRoom(t *testing.T, clock *fakeClock) (*Room, *fakeRecorder) {
	t.Helper()
	rec := &fakeRecorder{}
	status := newTestStatus(0, 0, clock)
	rm := NewRoom(uuid.New(), "movie night", status, &fakeSource{files: []string{"e1.mkv", "e2.mkv", "e3.mkv"}}, rec)
	rm.now = clock.Now
	rm.lastLeave = clock.Now()
	return rm, rec
}

func TestRoomJoinSuspendsPlayback(t *testing.T) {
	clock := newFakeClock()
	rm, _ := newTestRoom(t, clock)

	a := &fakeSink{}
	idA := rm.AddConnection(a)

	// Lone viewer starts playing.
	if err := rm.HandleFrame(idA, "up 0"); err != nil {
		t.Fatal(err)
	}
	if err := rm.HandleFrame(idA, "pl 0"); err != nil {
		t.Fatal(err)
	}
	clock.Advance(10 * time.Second)

	b := &fakeSink{}
	rm.AddConnection(b)

	kind, vt, _ := rm.Status()
	if kind != KindSuspended {
		t.Errorf("status = %v, want suspended after join", kind)
	}
	if vt != 10 {
		t.Errorf("video time = %v, want 10 frozen at join", vt)
	}
	if got := b.Frames()[0]; got != "sp 10" {
		t.Errorf("newcomer first frame = %q, want %q", got, "sp 10")
	}
}

func TestRoomJoinResumesPausedNotPlaying(t *testing.T) {
	clock := newFakeClock()
	rm, _ := newTestRoom(t, clock)

	a := &fakeSink{}
	idA := rm.AddConnection(a)
	rm.HandleFrame(idA, "up 0")
	rm.HandleFrame(idA, "pl 0")

	b := &fakeSink{}
	idB := rm.AddConnection(b)

	// Both report ready; playback was playing before the join but resumes
	// paused so viewers seek together first.
	rm.HandleFrame(idA, "up 0")
	rm.HandleFrame(idB, "up 0")

	kind, _, _ := rm.Status()
	if kind != KindPaused {
		t.Errorf("status = %v, want paused after everyone ready", kind)
	}
}

func TestRoomJoinAnnouncesPresence(t *testing.T) {
	clock := newFakeClock()
	rm, _ := newTestRoom(t, clock)

	a := &fakeSink{}
	idA := rm.AddConnection(a)
	rm.HandleFrame(idA, "up 0")

	b := &fakeSink{}
	idB := rm.AddConnection(b)

	var sawConnect bool
	for _, f := range a.Frames() {
		if f == userConnectFrame(idB) {
			sawConnect = true
		}
	}
	if !sawConnect {
		t.Errorf("existing viewer frames %v missing %q", a.Frames(), userConnectFrame(idB))
	}

	var sawAlive bool
	for _, f := range b.Frames() {
		if f == userAliveFrame(idA) {
			sawAlive = true
		}
	}
	if !sawAlive {
		t.Errorf("newcomer frames %v missing %q", b.Frames(), userAliveFrame(idA))
	}
}

func TestRoomHandleFrameBroadcastsToAll(t *testing.T) {
	clock := newFakeClock()
	rm, rec := newTestRoom(t, clock)

	a, b := &fakeSink{}, &fakeSink{}
	idA := rm.AddConnection(a)
	idB := rm.AddConnection(b)
	rm.HandleFrame(idA, "up 0")
	rm.HandleFrame(idB, "up 0")

	if err := rm.HandleFrame(idA, "pl 42.5"); err != nil {
		t.Fatal(err)
	}

	if got := a.Last(); got != "pl 42.5" {
		t.Errorf("sender last frame = %q, want echo %q", got, "pl 42.5")
	}
	if got := b.Last(); got != "pl 42.5" {
		t.Errorf("peer last frame = %q, want %q", got, "pl 42.5")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.lastTS != 42.5 {
		t.Errorf("recorded position = %v, want 42.5", rec.lastTS)
	}
}

func TestRoomChangeFile(t *testing.T) {
	clock := newFakeClock()
	rm, rec := newTestRoom(t, clock)

	a := &fakeSink{}
	idA := rm.AddConnection(a)
	rm.HandleFrame(idA, "up 0")
	rm.HandleFrame(idA, "pl 100")

	if err := rm.HandleFrame(idA, "cf 2"); err != nil {
		t.Fatal(err)
	}

	kind, vt, ind := rm.Status()
	if kind != KindPaused || vt != 0 || ind != 2 {
		t.Errorf("status after cf = (%v, %v, %d), want (paused, 0, 2)", kind, vt, ind)
	}

	frames := a.Frames()
	var sawSwitch bool
	for _, f := range frames {
		if f == "cf 2" {
			sawSwitch = true
		}
	}
	if !sawSwitch {
		t.Errorf("frames %v missing cf broadcast", frames)
	}
	if got := a.Last(); got != "pa 0" {
		t.Errorf("last frame = %q, want %q", got, "pa 0")
	}

	rec.mu.Lock()
	lastInd := rec.lastInd
	rec.mu.Unlock()
	if lastInd != 2 {
		t.Errorf("recorded file index = %d, want 2", lastInd)
	}
}

func TestRoomChangeFileRejected(t *testing.T) {
	clock := newFakeClock()
	rm, _ := newTestRoom(t, clock)

	a := &fakeSink{}
	idA := rm.AddConnection(a)
	rm.HandleFrame(idA, "up 0")
	rm.HandleFrame(idA, "pl 50")

	// Out of range; status keeps going.
	if err := rm.HandleFrame(idA, "cf 9"); err != nil {
		t.Fatal(err)
	}
	kind, _, ind := rm.Status()
	if kind != KindPlaying || ind != 0 {
		t.Errorf("status after rejected cf = (%v, file %d), want playing on file 0", kind, ind)
	}
	for _, f := range a.Frames() {
		if f == "cf 9" {
			t.Errorf("rejected switch must not broadcast %q", f)
		}
	}
}

func TestRoomMalformedFrame(t *testing.T) {
	clock := newFakeClock()
	rm, _ := newTestRoom(t, clock)

	a := &fakeSink{}
	idA := rm.AddConnection(a)

	if err := rm.HandleFrame(idA, "zz 1"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("HandleFrame error = %v, want ErrUnknownCommand", err)
	}
	kind, _, _ := rm.Status()
	if kind != KindSuspended {
		t.Errorf("status = %v, want unchanged suspended", kind)
	}
}

func TestRoomDisconnectPausesAndReleases(t *testing.T) {
	clock := newFakeClock()
	rm, _ := newTestRoom(t, clock)

	a, b := &fakeSink{}, &fakeSink{}
	idA := rm.AddConnection(a)
	idB := rm.AddConnection(b)
	rm.HandleFrame(idA, "up 0")
	rm.HandleFrame(idB, "up 0")
	rm.HandleFrame(idA, "pl 30")
	clock.Advance(5 * time.Second)

	rm.RemoveConnection(idA)

	kind, vt, _ := rm.Status()
	if kind != KindPaused {
		t.Errorf("status = %v, want paused after disconnect", kind)
	}
	if vt != 35 {
		t.Errorf("video time = %v, want 35", vt)
	}
	if got := b.Last(); got != userDisconnectFrame(idA) {
		t.Errorf("last frame = %q, want %q", got, userDisconnectFrame(idA))
	}
	if rm.ViewerCount() != 1 {
		t.Errorf("ViewerCount() = %d, want 1", rm.ViewerCount())
	}
}

// A viewer vanishing while holding a suspension must not wedge the room.
func TestRoomDisconnectOfSuspenderUnblocks(t *testing.T) {
	clock := newFakeClock()
	rm, _ := newTestRoom(t, clock)

	a, b := &fakeSink{}, &fakeSink{}
	idA := rm.AddConnection(a)
	idB := rm.AddConnection(b)
	rm.HandleFrame(idA, "up 0")
	// idB never reported ready; it disconnects instead.
	rm.RemoveConnection(idB)

	kind, _, _ := rm.Status()
	if kind != KindPaused {
		t.Errorf("status = %v, want paused with suspension released", kind)
	}
}

func TestRoomBroadcastEvictsBrokenSinks(t *testing.T) {
	clock := newFakeClock()
	rm, _ := newTestRoom(t, clock)

	a, b := &fakeSink{}, &fakeSink{}
	idA := rm.AddConnection(a)
	rm.AddConnection(b)
	rm.HandleFrame(idA, "up 0")

	b.mu.Lock()
	b.fail = true
	b.mu.Unlock()

	rm.HandleFrame(idA, "pa 1")
	if rm.ViewerCount() != 1 {
		t.Errorf("ViewerCount() = %d, want 1 after broken sink evicted", rm.ViewerCount())
	}
}

func TestRoomInactive(t *testing.T) {
	clock := newFakeClock()
	rm, _ := newTestRoom(t, clock)

	clock.Advance(time.Hour)
	if !rm.Inactive(10 * time.Minute) {
		t.Error("Inactive() = false for empty room past threshold")
	}

	a := &fakeSink{}
	id := rm.AddConnection(a)
	if rm.Inactive(10 * time.Minute) {
		t.Error("Inactive() = true with a live viewer")
	}

	rm.RemoveConnection(id)
	if rm.Inactive(10 * time.Minute) {
		t.Error("Inactive() = true right after last leave")
	}
	clock.Advance(11 * time.Minute)
	if !rm.Inactive(10 * time.Minute) {
		t.Error("Inactive() = false past threshold after last leave")
	}
}

func TestRoomReplaceSource(t *testing.T) {
	clock := newFakeClock()
	rm, rec := newTestRoom(t, clock)

	a := &fakeSink{}
	idA := rm.AddConnection(a)
	rm.HandleFrame(idA, "up 0")
	rm.HandleFrame(idA, "pl 500")

	if err := rm.ReplaceSource(&fakeSource{files: []string{"other.mkv"}}); err != nil {
		t.Fatal(err)
	}

	kind, vt, ind := rm.Status()
	if kind != KindPaused || vt != 0 || ind != 0 {
		t.Errorf("status after source swap = (%v, %v, %d), want (paused, 0, 0)", kind, vt, ind)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.lastTS != 0 || rec.lastInd != 0 {
		t.Errorf("recorded state = (%v, %d), want (0, 0)", rec.lastTS, rec.lastInd)
	}
}
