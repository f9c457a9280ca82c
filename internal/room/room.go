package room

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// VideoSource serves the video material a room plays. Implementations cover
// plain HTTP links and torrent-backed files.
type VideoSource interface {
	// AvailableFiles lists the playable file names in index order.
	AvailableFiles() []string
	// SetFileIndex switches the source to another file. It reports false
	// when the index is out of range or already current.
	SetFileIndex(fileInd int) bool
	// PlayerSource returns the URL the player should load for the room.
	PlayerSource(roomID uuid.UUID) string
	// ServeVideo answers a playback request, honoring Range headers where
	// the source supports them.
	ServeVideo(w http.ResponseWriter, r *http.Request)
	// Cleanup releases everything the source holds, including any
	// on-disk scratch data.
	Cleanup() error
}

// WatchStateRecorder persists a room's playback progress so it survives
// eviction and restarts. Implementations must tolerate concurrent calls.
type WatchStateRecorder interface {
	RecordWatchState(roomID uuid.UUID, videoTime float64, fileInd int) error
}

// Room couples a playback status with the set of live viewer connections
// and a video source. All state transitions go through the room mutex, so
// every connection observes the same ordering of frames.
type Room struct {
	ID   uuid.UUID
	Name string

	mu        sync.Mutex
	status    *Status
	conns     *connSet
	source    VideoSource
	recorder  WatchStateRecorder
	lastLeave time.Time
	logger    *slog.Logger
	now       func() time.Time
}

// NewRoom builds a room around an existing status and source. The recorder
// may be nil, in which case progress is not persisted.
func NewRoom(id uuid.UUID, name string, status *Status, source VideoSource, recorder WatchStateRecorder) *Room {
	return &Room{
		ID:        id,
		Name:      name,
		status:    status,
		conns:     newConnSet(),
		source:    source,
		recorder:  recorder,
		lastLeave: time.Now(),
		logger:    slog.With("component", "room", "room_id", id.String()),
		now:       time.Now,
	}
}

// AddConnection registers a viewer. The join suspends playback until the
// newcomer reports ready via an unsuspend command; whatever the room was
// doing, it resumes paused, so viewers re-synchronize positions explicitly.
// The current status is broadcast along with presence frames.
func (r *Room) AddConnection(s Sink) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.conns.IDs()
	id := r.conns.Add(s)

	r.status.AddSuspendBy(id)
	r.status.SetResumeTarget(KindPaused)

	r.broadcastLocked(r.status.ServerFrame())
	r.broadcastLocked(userConnectFrame(id))
	for _, other := range existing {
		if err := r.conns.SendTo(id, userAliveFrame(other)); err != nil {
			break
		}
	}

	r.logger.Debug("connection added", "conn_id", id, "viewers", r.conns.Len())
	return id
}

// RemoveConnection drops a viewer. Its suspension is released and playback
// is paused so remaining viewers do not drift while someone reconnects.
func (r *Room) RemoveConnection(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns.Remove(id)
	r.status.RemoveSuspendBy(id)
	r.status.SetPause()
	r.lastLeave = r.now()

	r.broadcastLocked(r.status.ServerFrame())
	r.broadcastLocked(userDisconnectFrame(id))

	r.logger.Debug("connection removed", "conn_id", id, "viewers", r.conns.Len())
}

// HandleFrame applies a client frame from the given connection and
// broadcasts the resulting status to every viewer, the sender included.
// Malformed frames are rejected without touching the status.
func (r *Room) HandleFrame(connID int, frame string) error {
	cmd, err := ParseCommand(frame)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch cmd.Kind {
	case CmdPlay:
		r.status.SetVideoTime(cmd.VideoTime)
		r.status.SetPlay()
	case CmdPause:
		r.status.SetVideoTime(cmd.VideoTime)
		r.status.SetPause()
	case CmdSuspend:
		r.status.SetVideoTime(cmd.VideoTime)
		r.status.AddSuspendBy(connID)
	case CmdUnsuspend:
		r.status.SetVideoTime(cmd.VideoTime)
		r.status.RemoveSuspendBy(connID)
	case CmdChangeFile:
		if !r.source.SetFileIndex(cmd.FileInd) {
			r.broadcastLocked(r.status.ServerFrame())
			return nil
		}
		r.status.SetFileIndex(cmd.FileInd)
		r.broadcastLocked(ChangeFileFrame(cmd.FileInd))
	}

	r.broadcastLocked(r.status.ServerFrame())
	r.recordLocked()
	return nil
}

// broadcastLocked fans a frame out and evicts connections whose send
// failed. Callers hold r.mu.
func (r *Room) broadcastLocked(frame string) {
	for _, id := range r.conns.Broadcast(frame) {
		r.logger.Warn("dropping unreachable connection", "conn_id", id)
		r.conns.Remove(id)
		r.status.RemoveSuspendBy(id)
	}
}

func (r *Room) recordLocked() {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.RecordWatchState(r.ID, r.status.VideoTime(), r.status.FileIndex()); err != nil {
		r.logger.Error("failed to persist watch state", "error", err)
	}
}

// Status returns a snapshot of the room's playback state.
func (r *Room) Status() (kind StatusKind, videoTime float64, fileInd int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status.Kind(), r.status.VideoTime(), r.status.FileIndex()
}

// ViewerCount reports the number of live connections.
func (r *Room) ViewerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns.Len()
}

// AvailableFiles lists the source's playable files.
func (r *Room) AvailableFiles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.source.AvailableFiles()
}

// PlayerSource returns the URL players should load for this room.
func (r *Room) PlayerSource() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.source.PlayerSource(r.ID)
}

// ServeVideo delegates a playback request to the video source.
func (r *Room) ServeVideo(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	src := r.source
	r.mu.Unlock()
	src.ServeVideo(w, req)
}

// ReplaceSource swaps the video source, cleaning up the old one. Playback
// restarts paused at position zero on file zero.
func (r *Room) ReplaceSource(src VideoSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.source
	r.source = src
	r.status = NewPausedStatus(0, 0)

	r.broadcastLocked(ChangeFileFrame(0))
	r.broadcastLocked(r.status.ServerFrame())
	r.recordLocked()

	if old != nil {
		return old.Cleanup()
	}
	return nil
}

// Inactive reports whether the room has had no viewers for at least the
// given period.
func (r *Room) Inactive(period time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns.Len() == 0 && r.now().Sub(r.lastLeave) >= period
}

// Cleanup persists progress and releases the video source. The room must
// not be used afterwards.
func (r *Room) Cleanup() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordLocked()
	return r.source.Cleanup()
}
