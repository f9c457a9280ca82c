package torrent

import (
	"log/slog"
	"sync"
	"time"
)

// Observer drains a torrent's alert queue on a short ticker and routes read
// results to per-piece subscribers. One observer runs per handle; piece
// getters subscribe for the pieces they are waiting on.
type Observer struct {
	t        Torrent
	interval time.Duration

	mu      sync.Mutex
	waiters map[int][]chan ReadPieceAlert

	stopOnce sync.Once
	stopChan chan struct{}
	log      *slog.Logger
}

// NewObserver creates an observer for the given torrent.
func NewObserver(t Torrent) *Observer {
	return &Observer{
		t:        t,
		interval: 25 * time.Millisecond,
		waiters:  make(map[int][]chan ReadPieceAlert),
		stopChan: make(chan struct{}),
		log:      slog.With("component", "alert-observer", "hash", t.InfoHash()),
	}
}

// Start launches the drain loop.
func (o *Observer) Start() {
	go o.loop()
}

// Stop halts the drain loop. Pending subscribers never receive a result
// after Stop; their waits end by timeout or context.
func (o *Observer) Stop() {
	o.stopOnce.Do(func() { close(o.stopChan) })
}

// Subscribe registers for the next read result of a piece. The returned
// channel is buffered and receives at most one alert; cancel releases the
// subscription early.
func (o *Observer) Subscribe(piece int) (<-chan ReadPieceAlert, func()) {
	ch := make(chan ReadPieceAlert, 1)

	o.mu.Lock()
	o.waiters[piece] = append(o.waiters[piece], ch)
	o.mu.Unlock()

	cancel := func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		chans := o.waiters[piece]
		for i, c := range chans {
			if c == ch {
				o.waiters[piece] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		if len(o.waiters[piece]) == 0 {
			delete(o.waiters, piece)
		}
	}
	return ch, cancel
}

func (o *Observer) loop() {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopChan:
			return
		case <-ticker.C:
			o.dispatch()
		}
	}
}

// dispatch delivers each read alert to every subscriber of its piece. A
// piece's subscribers are cleared on delivery; duplicate alerts for the
// same piece fall through harmlessly.
func (o *Observer) dispatch() {
	alerts := o.t.PopAlerts()
	if len(alerts) == 0 {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	for _, a := range alerts {
		rp, ok := a.(ReadPieceAlert)
		if !ok {
			continue
		}
		for _, ch := range o.waiters[rp.Piece] {
			ch <- rp
		}
		delete(o.waiters, rp.Piece)
	}
}
