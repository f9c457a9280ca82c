package torrent

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/anacrolix/torrent"
)

var _ Torrent = (*Handle)(nil)

// Handle adapts one swarm torrent to the Torrent contract. Read results are
// posted to an internal alert queue that the observer drains; the handle
// never calls back into its consumers directly.
type Handle struct {
	t          *torrent.Torrent
	scratchDir string

	mu      sync.Mutex
	alerts  []Alert
	removed bool

	// touch is invoked on every deadline or read so the activity manager
	// can keep the torrent's network alive.
	touch    func()
	onRemove func()

	log *slog.Logger
}

func newHandle(t *torrent.Torrent, scratchDir string) *Handle {
	return &Handle{
		t:          t,
		scratchDir: scratchDir,
		touch:      func() {},
		onRemove:   func() {},
		log:        slog.With("component", "torrent-handle", "hash", t.InfoHash().HexString()),
	}
}

// InfoHash returns the lowercase hex info hash.
func (h *Handle) InfoHash() string {
	return h.t.InfoHash().HexString()
}

// Files lists the torrent's files in index order.
func (h *Handle) Files() []FileInfo {
	files := h.t.Files()
	out := make([]FileInfo, len(files))
	for i, f := range files {
		out[i] = FileInfo{Name: f.DisplayPath(), Size: f.Length()}
	}
	return out
}

// NumPieces returns the piece count.
func (h *Handle) NumPieces() int {
	return h.t.NumPieces()
}

// PieceSize returns the byte length of a piece.
func (h *Handle) PieceSize(piece int) int64 {
	return h.t.Info().Piece(piece).Length()
}

// PieceAt maps a byte offset within a file to its piece and intra-piece
// offset. Files are laid out back to back in piece space, so the absolute
// offset is the file's start plus the byte offset.
func (h *Handle) PieceAt(fileInd int, offset int64) (int, int64) {
	f := h.t.Files()[fileInd]
	abs := f.Offset() + offset
	pieceLength := h.t.Info().PieceLength
	return int(abs / pieceLength), abs % pieceLength
}

// HavePiece reports whether a piece is downloaded and verified.
func (h *Handle) HavePiece(piece int) bool {
	return h.t.PieceState(piece).Complete
}

// SetPieceDeadline requests a piece, translating the deadline into a swarm
// priority. A zero deadline jumps the queue entirely; near deadlines get
// elevated priority, far ones the normal one.
func (h *Handle) SetPieceDeadline(piece int, deadline time.Duration) {
	h.touch()
	p := h.t.Piece(piece)
	switch {
	case deadline <= 0:
		p.SetPriority(torrent.PiecePriorityNow)
	case deadline <= 10*time.Second:
		p.SetPriority(torrent.PiecePriorityHigh)
	default:
		p.SetPriority(torrent.PiecePriorityNormal)
	}
}

// ClearPieceDeadlines resets every piece to not-wanted, so only explicit
// deadlines drive downloading.
func (h *Handle) ClearPieceDeadlines() {
	for i := 0; i < h.t.NumPieces(); i++ {
		h.t.Piece(i).SetPriority(torrent.PiecePriorityNone)
	}
}

// ReadPiece reads a downloaded piece asynchronously and posts the result
// as a ReadPieceAlert.
func (h *Handle) ReadPiece(piece int) {
	h.touch()
	go func() {
		data, err := h.readPiece(piece)
		h.postAlert(ReadPieceAlert{Piece: piece, Data: data, Err: err})
	}()
}

func (h *Handle) readPiece(piece int) ([]byte, error) {
	r := h.t.NewReader()
	defer r.Close()

	pieceLength := h.t.Info().PieceLength
	if _, err := r.Seek(int64(piece)*pieceLength, io.SeekStart); err != nil {
		return nil, err
	}

	buf := make([]byte, h.PieceSize(piece))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (h *Handle) postAlert(a Alert) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.removed {
		return
	}
	h.alerts = append(h.alerts, a)
}

// PopAlerts drains the pending alert queue.
func (h *Handle) PopAlerts() []Alert {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.alerts
	h.alerts = nil
	return out
}

// AllowNetwork enables swarm traffic for this torrent.
func (h *Handle) AllowNetwork() {
	h.t.AllowDataDownload()
	h.t.AllowDataUpload()
}

// DisallowNetwork pauses swarm traffic for this torrent.
func (h *Handle) DisallowNetwork() {
	h.t.DisallowDataDownload()
	h.t.DisallowDataUpload()
}

// Remove drops the torrent from the session. With deleteData the scratch
// directory is removed as well; other torrents are unaffected since every
// handle owns its own directory.
func (h *Handle) Remove(deleteData bool) error {
	h.mu.Lock()
	if h.removed {
		h.mu.Unlock()
		return nil
	}
	h.removed = true
	h.mu.Unlock()

	h.onRemove()
	h.t.Drop()

	if deleteData {
		if err := os.RemoveAll(h.scratchDir); err != nil {
			return err
		}
		h.log.Info("torrent removed with data", "scratch_dir", h.scratchDir)
	} else {
		h.log.Info("torrent removed")
	}
	return nil
}
