package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRoomNotFound reports a room id with no durable record behind it.
var ErrRoomNotFound = errors.New("room not found")

// LoadFunc materializes a live room from its durable record. It returns
// ErrRoomNotFound (possibly wrapped) when no record exists.
type LoadFunc func(ctx context.Context, id uuid.UUID) (*Room, error)

// Storage keeps the set of live rooms. Rooms are loaded lazily on first
// access and evicted by a periodic sweep once they have been idle longer
// than the configured inactivity period. Eviction persists progress and
// tears down the video source; the durable record survives, so the next
// access simply reloads the room.
type Storage struct {
	load             LoadFunc
	inactivityPeriod time.Duration
	sweepInterval    time.Duration
	logger           *slog.Logger

	mu    sync.Mutex
	rooms map[uuid.UUID]*Room

	onLoad  func()
	onEvict func()
}

// NewStorage creates an empty storage sweeping at the given cadence.
func NewStorage(load LoadFunc, inactivityPeriod, sweepInterval time.Duration) *Storage {
	return &Storage{
		load:             load,
		inactivityPeriod: inactivityPeriod,
		sweepInterval:    sweepInterval,
		logger:           slog.With("component", "room-storage"),
		rooms:            make(map[uuid.UUID]*Room),
	}
}

// SetHooks installs optional callbacks fired after a room load and after an
// eviction. Either may be nil.
func (st *Storage) SetHooks(onLoad, onEvict func()) {
	st.onLoad = onLoad
	st.onEvict = onEvict
}

// Get returns the live room for id, loading it if necessary. Concurrent
// callers for the same id share a single load.
func (st *Storage) Get(ctx context.Context, id uuid.UUID) (*Room, error) {
	st.mu.Lock()
	if rm, ok := st.rooms[id]; ok {
		st.mu.Unlock()
		return rm, nil
	}
	st.mu.Unlock()

	rm, err := st.load(ctx, id)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	// Another caller may have loaded the room while we were; keep theirs
	// and discard ours so connections never split across two instances.
	if existing, ok := st.rooms[id]; ok {
		_ = rm.Cleanup()
		return existing, nil
	}
	st.rooms[id] = rm
	if st.onLoad != nil {
		st.onLoad()
	}
	st.logger.Info("room loaded", "room_id", id.String(), "name", rm.Name)
	return rm, nil
}

// Peek returns the live room for id without loading, or nil.
func (st *Storage) Peek(id uuid.UUID) *Room {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.rooms[id]
}

// Len reports the number of live rooms.
func (st *Storage) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.rooms)
}

// LiveStats reports the live room count and the total viewers across them.
func (st *Storage) LiveStats() (rooms, viewers int) {
	st.mu.Lock()
	live := make([]*Room, 0, len(st.rooms))
	for _, rm := range st.rooms {
		live = append(live, rm)
	}
	st.mu.Unlock()

	for _, rm := range live {
		viewers += rm.ViewerCount()
	}
	return len(live), viewers
}

// Evict removes a room from the live set and tears it down. It is a no-op
// for rooms that are not live.
func (st *Storage) Evict(id uuid.UUID) {
	st.mu.Lock()
	rm, ok := st.rooms[id]
	if ok {
		delete(st.rooms, id)
	}
	st.mu.Unlock()
	if !ok {
		return
	}

	if err := rm.Cleanup(); err != nil {
		st.logger.Error("room cleanup failed", "room_id", id.String(), "error", err)
	}
	if st.onEvict != nil {
		st.onEvict()
	}
	st.logger.Info("room evicted", "room_id", id.String())
}

// SweepOnce evicts every live room idle beyond the inactivity period and
// returns how many were evicted.
func (st *Storage) SweepOnce() int {
	st.mu.Lock()
	var stale []uuid.UUID
	for id, rm := range st.rooms {
		if rm.Inactive(st.inactivityPeriod) {
			stale = append(stale, id)
		}
	}
	st.mu.Unlock()

	for _, id := range stale {
		st.Evict(id)
	}
	return len(stale)
}

// Run sweeps periodically until the context is cancelled.
func (st *Storage) Run(ctx context.Context) {
	ticker := time.NewTicker(st.sweepInterval)
	defer ticker.Stop()

	st.logger.Info("room sweeper started",
		"sweep_interval", st.sweepInterval,
		"inactivity_period", st.inactivityPeriod)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.SweepOnce(); n > 0 {
				st.logger.Debug("sweep evicted rooms", "count", n)
			}
		}
	}
}

// CleanupAll tears down every live room, used on shutdown.
func (st *Storage) CleanupAll() {
	st.mu.Lock()
	rooms := st.rooms
	st.rooms = make(map[uuid.UUID]*Room)
	st.mu.Unlock()

	for id, rm := range rooms {
		if err := rm.Cleanup(); err != nil {
			st.logger.Error("room cleanup failed", "room_id", id.String(), "error", err)
		}
	}
}
