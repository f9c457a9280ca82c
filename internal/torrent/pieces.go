package torrent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PieceGetter hands out piece payloads, sharing downloads and read buffers
// between concurrent consumers. Consumers declare interest with Require,
// fetch bytes with GetPiece, and drop interest with Release; a piece's
// buffer lives as long as somebody still holds a reference, so viewers
// streaming the same region read the swarm once.
type PieceGetter struct {
	t           Torrent
	obs         *Observer
	waitTimeout time.Duration
	havePoll    time.Duration

	mu      sync.Mutex
	refs    map[int]int
	buffers map[int][]byte
	pending map[int]*pendingRead

	// onServed fires per piece handed to a consumer, nil-safe.
	onServed func(fromCache bool)
	// onTimeout fires when a piece wait gives up, nil-safe.
	onTimeout func()

	log *slog.Logger
}

// NewPieceGetter creates a getter over the given torrent and its observer.
func NewPieceGetter(t Torrent, obs *Observer, waitTimeout time.Duration) *PieceGetter {
	return &PieceGetter{
		t:           t,
		obs:         obs,
		waitTimeout: waitTimeout,
		havePoll:    25 * time.Millisecond,
		refs:        make(map[int]int),
		buffers:     make(map[int][]byte),
		pending:     make(map[int]*pendingRead),
		log:         slog.With("component", "piece-getter", "hash", t.InfoHash()),
	}
}

// SetServedHook installs a callback fired whenever a piece is handed out,
// with fromCache telling whether the buffer was already in memory.
func (pg *PieceGetter) SetServedHook(f func(fromCache bool)) {
	pg.onServed = f
}

// SetTimeoutHook installs a callback fired whenever waiting on a piece
// times out.
func (pg *PieceGetter) SetTimeoutHook(f func()) {
	pg.onTimeout = f
}

// Require declares interest in a piece and schedules its download with the
// given deadline. Every Require must be paired with a Release.
func (pg *PieceGetter) Require(piece int, deadline time.Duration) {
	pg.mu.Lock()
	pg.refs[piece]++
	pg.mu.Unlock()

	pg.t.SetPieceDeadline(piece, deadline)
}

// Release drops one reference to a piece. When the last reference goes the
// buffered payload is freed.
func (pg *PieceGetter) Release(piece int) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	pg.refs[piece]--
	if pg.refs[piece] <= 0 {
		delete(pg.refs, piece)
		delete(pg.buffers, piece)
	}
}

// Refs reports the current reference count of a piece.
func (pg *PieceGetter) Refs(piece int) int {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	return pg.refs[piece]
}

// Buffered reports whether a piece's payload is currently held in memory.
func (pg *PieceGetter) Buffered(piece int) bool {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	_, ok := pg.buffers[piece]
	return ok
}

// pendingRead is a piece read in flight. The consumer that started it
// fills data and err before closing done; everyone else waits on done.
type pendingRead struct {
	done chan struct{}
	data []byte
	err  error
}

// GetPiece returns the payload of a piece the caller has Required. It
// waits first for the download, then for the asynchronous read, each
// bounded by the wait timeout and the context. Concurrent callers for the
// same piece share a single torrent read.
func (pg *PieceGetter) GetPiece(ctx context.Context, piece int) ([]byte, error) {
	for {
		pg.mu.Lock()
		if buf, ok := pg.buffers[piece]; ok {
			pg.mu.Unlock()
			pg.served(true)
			return buf, nil
		}
		if p := pg.pending[piece]; p != nil {
			pg.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-p.done:
			}
			if p.err != nil {
				// The read failed; retry, taking it over.
				continue
			}
			pg.served(true)
			return p.data, nil
		}
		p := &pendingRead{done: make(chan struct{})}
		pg.pending[piece] = p
		pg.mu.Unlock()

		data, err := pg.fetch(ctx, piece)
		p.data, p.err = data, err

		pg.mu.Lock()
		delete(pg.pending, piece)
		// Cache only while someone still cares; a racing Release may
		// already have dropped the last reference.
		if err == nil && pg.refs[piece] > 0 {
			pg.buffers[piece] = data
		}
		pg.mu.Unlock()
		close(p.done)

		if err != nil {
			return nil, err
		}
		pg.served(false)
		return data, nil
	}
}

// fetch waits for a piece's download, then reads its payload.
func (pg *PieceGetter) fetch(ctx context.Context, piece int) ([]byte, error) {
	if err := pg.waitHave(ctx, piece); err != nil {
		return nil, err
	}
	return pg.readPiece(ctx, piece)
}

// waitHave polls until the piece is downloaded.
func (pg *PieceGetter) waitHave(ctx context.Context, piece int) error {
	if pg.t.HavePiece(piece) {
		return nil
	}

	ticker := time.NewTicker(pg.havePoll)
	defer ticker.Stop()
	deadline := time.NewTimer(pg.waitTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			pg.log.Warn("piece download timed out", "piece", piece)
			pg.timedOut()
			return fmt.Errorf("%w: piece %d", ErrPieceHaveTimeout, piece)
		case <-ticker.C:
			if pg.t.HavePiece(piece) {
				return nil
			}
		}
	}
}

// readPiece performs the asynchronous read and waits for its alert. The
// subscription is taken before ReadPiece so the result cannot slip by.
func (pg *PieceGetter) readPiece(ctx context.Context, piece int) ([]byte, error) {
	ch, cancel := pg.obs.Subscribe(piece)
	defer cancel()

	pg.t.ReadPiece(piece)

	deadline := time.NewTimer(pg.waitTimeout)
	defer deadline.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-deadline.C:
		pg.log.Warn("piece read timed out", "piece", piece)
		pg.timedOut()
		return nil, fmt.Errorf("%w: piece %d", ErrPieceReadTimeout, piece)
	case alert := <-ch:
		if alert.Err != nil {
			return nil, fmt.Errorf("failed to read piece %d: %w", piece, alert.Err)
		}
		return alert.Data, nil
	}
}

func (pg *PieceGetter) served(fromCache bool) {
	if pg.onServed != nil {
		pg.onServed(fromCache)
	}
}

func (pg *PieceGetter) timedOut() {
	if pg.onTimeout != nil {
		pg.onTimeout()
	}
}
