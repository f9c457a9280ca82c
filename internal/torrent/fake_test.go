package torrent

import (
	"sync"
	"time"
)

// fakeTorrent is an in-memory Torrent for exercising the observer, piece
// getter and file handler without a swarm. Pieces are filled with a
// deterministic pattern so byte-level assertions are possible.
type fakeTorrent struct {
	mu          sync.Mutex
	files       []FileInfo
	pieceLength int64
	missing     map[int]bool
	deadlines   map[int]time.Duration
	cleared     int
	alerts      []Alert
	readCalls   map[int]int
	readErr     map[int]error
	holdReads   bool
	heldReads   []int
	removed     bool
	removedData bool
}

func newFakeTorrent(pieceLength int64, fileSizes ...int64) *fakeTorrent {
	files := make([]FileInfo, len(fileSizes))
	for i, sz := range fileSizes {
		files[i] = FileInfo{Name: "file" + string(rune('a'+i)) + ".mkv", Size: sz}
	}
	return &fakeTorrent{
		files:       files,
		pieceLength: pieceLength,
		missing:     make(map[int]bool),
		deadlines:   make(map[int]time.Duration),
		readCalls:   make(map[int]int),
		readErr:     make(map[int]error),
	}
}

func (f *fakeTorrent) totalSize() int64 {
	var total int64
	for _, fi := range f.files {
		total += fi.Size
	}
	return total
}

func (f *fakeTorrent) fileOffset(fileInd int) int64 {
	var off int64
	for i := 0; i < fileInd; i++ {
		off += f.files[i].Size
	}
	return off
}

// pieceByte is the deterministic content pattern.
func pieceByte(piece int, i int64) byte {
	return byte(int64(piece)*31 + i)
}

func (f *fakeTorrent) InfoHash() string { return "fakefakefakefakefakefakefakefakefakefake" }

func (f *fakeTorrent) Files() []FileInfo {
	return append([]FileInfo(nil), f.files...)
}

func (f *fakeTorrent) NumPieces() int {
	return int((f.totalSize() + f.pieceLength - 1) / f.pieceLength)
}

func (f *fakeTorrent) PieceSize(piece int) int64 {
	remaining := f.totalSize() - int64(piece)*f.pieceLength
	if remaining < f.pieceLength {
		return remaining
	}
	return f.pieceLength
}

func (f *fakeTorrent) PieceAt(fileInd int, offset int64) (int, int64) {
	abs := f.fileOffset(fileInd) + offset
	return int(abs / f.pieceLength), abs % f.pieceLength
}

func (f *fakeTorrent) HavePiece(piece int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.missing[piece]
}

func (f *fakeTorrent) setMissing(piece int, missing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missing[piece] = missing
}

func (f *fakeTorrent) SetPieceDeadline(piece int, deadline time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadlines[piece] = deadline
}

func (f *fakeTorrent) ClearPieceDeadlines() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadlines = make(map[int]time.Duration)
	f.cleared++
}

func (f *fakeTorrent) deadline(piece int) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deadlines[piece]
	return d, ok
}

func (f *fakeTorrent) ReadPiece(piece int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readCalls[piece]++

	if f.holdReads {
		f.heldReads = append(f.heldReads, piece)
		return
	}
	f.alerts = append(f.alerts, f.readAlert(piece))
}

// setHoldReads makes ReadPiece park its results until flushHeldReads,
// keeping reads observably in flight.
func (f *fakeTorrent) setHoldReads(hold bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holdReads = hold
}

func (f *fakeTorrent) flushHeldReads() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, piece := range f.heldReads {
		f.alerts = append(f.alerts, f.readAlert(piece))
	}
	f.heldReads = nil
}

// readAlert builds the alert a read of the piece produces. Callers hold
// f.mu.
func (f *fakeTorrent) readAlert(piece int) ReadPieceAlert {
	if err := f.readErr[piece]; err != nil {
		return ReadPieceAlert{Piece: piece, Err: err}
	}
	data := make([]byte, f.PieceSize(piece))
	for i := range data {
		data[i] = pieceByte(piece, int64(i))
	}
	return ReadPieceAlert{Piece: piece, Data: data}
}

func (f *fakeTorrent) reads(piece int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readCalls[piece]
}

func (f *fakeTorrent) PopAlerts() []Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.alerts
	f.alerts = nil
	return out
}

func (f *fakeTorrent) Remove(deleteData bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = true
	f.removedData = deleteData
	return nil
}
