package torrent

import (
	"log/slog"
	"sync"
	"time"
)

// networkToggler is the slice of Handle the activity manager needs.
type networkToggler interface {
	InfoHash() string
	AllowNetwork()
	DisallowNetwork()
}

// ActivityManager idles the network activity of torrents nobody is reading.
// Rooms are evicted minutes after their last viewer leaves, but a torrent
// can sit loaded the whole inactivity window; idling it stops the seeding
// and download traffic in the meantime.
type ActivityManager struct {
	mu         sync.RWMutex
	handles    map[string]networkToggler
	lastAccess map[string]time.Time
	idle       map[string]bool

	idleTimeout   time.Duration
	checkInterval time.Duration

	stopOnce sync.Once
	stopChan chan struct{}
	log      *slog.Logger
}

// NewActivityManager creates a manager idling torrents after idleTimeout
// without reads.
func NewActivityManager(idleTimeout time.Duration) *ActivityManager {
	return &ActivityManager{
		handles:       make(map[string]networkToggler),
		lastAccess:    make(map[string]time.Time),
		idle:          make(map[string]bool),
		idleTimeout:   idleTimeout,
		checkInterval: 30 * time.Second,
		stopChan:      make(chan struct{}),
		log:           slog.With("component", "activity-manager"),
	}
}

// Register adds a handle to be managed and hooks its touch callback so
// deadline and read traffic counts as activity.
func (am *ActivityManager) Register(h *Handle) {
	hash := h.InfoHash()

	am.mu.Lock()
	am.handles[hash] = h
	am.lastAccess[hash] = time.Now()
	am.idle[hash] = false
	am.mu.Unlock()

	h.touch = func() { am.MarkActive(hash) }
	am.log.Info("registered torrent", "hash", hash)
}

// Unregister removes a handle from management.
func (am *ActivityManager) Unregister(hash string) {
	am.mu.Lock()
	defer am.mu.Unlock()
	delete(am.handles, hash)
	delete(am.lastAccess, hash)
	delete(am.idle, hash)
	am.log.Info("unregistered torrent", "hash", hash)
}

// MarkActive resets a torrent's idle timer, waking it if it was idled.
func (am *ActivityManager) MarkActive(hash string) {
	am.mu.Lock()
	defer am.mu.Unlock()

	am.lastAccess[hash] = time.Now()
	if am.idle[hash] {
		if h, ok := am.handles[hash]; ok {
			h.AllowNetwork()
			am.idle[hash] = false
			am.log.Info("torrent activated", "hash", hash)
		}
	}
}

// IsIdle reports whether a torrent's network is currently paused.
func (am *ActivityManager) IsIdle(hash string) bool {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return am.idle[hash]
}

// Start begins the background idle check loop.
func (am *ActivityManager) Start() {
	am.log.Info("activity manager started",
		"idle_timeout", am.idleTimeout,
		"check_interval", am.checkInterval,
	)
	go am.loop()
}

// Stop halts the background loop.
func (am *ActivityManager) Stop() {
	am.stopOnce.Do(func() { close(am.stopChan) })
}

func (am *ActivityManager) loop() {
	ticker := time.NewTicker(am.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-am.stopChan:
			return
		case <-ticker.C:
			am.idleStale()
		}
	}
}

// idleStale pauses torrents past the idle timeout. Candidates are collected
// under the read lock first so MarkActive stays cheap.
func (am *ActivityManager) idleStale() {
	am.mu.RLock()
	now := time.Now()
	var candidates []string
	for hash := range am.handles {
		if !am.idle[hash] && now.Sub(am.lastAccess[hash]) >= am.idleTimeout {
			candidates = append(candidates, hash)
		}
	}
	am.mu.RUnlock()

	if len(candidates) == 0 {
		return
	}

	am.mu.Lock()
	defer am.mu.Unlock()
	for _, hash := range candidates {
		// Re-check, state may have moved since collection.
		if am.idle[hash] || time.Since(am.lastAccess[hash]) < am.idleTimeout {
			continue
		}
		if h, ok := am.handles[hash]; ok {
			h.DisallowNetwork()
			am.idle[hash] = true
			am.log.Info("torrent idled", "hash", hash)
		}
	}
}
