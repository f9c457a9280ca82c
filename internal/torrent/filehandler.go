package torrent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// FileHandler streams one torrent's files piece by piece. It owns the
// alert observer and piece getter for its handle, keeps a current file
// index, and keeps the endpoint pieces of that file hot so players probing
// container headers and trailers get them first.
type FileHandler struct {
	t   Torrent
	obs *Observer
	pg  *PieceGetter

	mu      sync.Mutex
	fileInd int
	files   []FileInfo

	log *slog.Logger
}

// NewFileHandler creates a handler positioned on the given file index,
// clamped into range. Nothing is wanted except the current file's endpoint
// pieces until a stream requests a range.
func NewFileHandler(t Torrent, fileInd int, pieceWaitTimeout time.Duration) (*FileHandler, error) {
	files := t.Files()
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if fileInd < 0 || fileInd >= len(files) {
		fileInd = 0
	}

	obs := NewObserver(t)
	obs.Start()

	fh := &FileHandler{
		t:       t,
		obs:     obs,
		pg:      NewPieceGetter(t, obs, pieceWaitTimeout),
		fileInd: fileInd,
		files:   files,
		log:     slog.With("component", "file-handler", "hash", t.InfoHash()),
	}
	fh.primeLocked()
	return fh, nil
}

// PieceGetter exposes the handler's piece getter for metric hooks.
func (fh *FileHandler) PieceGetter() *PieceGetter { return fh.pg }

// AllFiles lists the torrent's file names in index order.
func (fh *FileHandler) AllFiles() []string {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	names := make([]string, len(fh.files))
	for i, f := range fh.files {
		names[i] = f.Name
	}
	return names
}

// FileSize returns the byte size of a file.
func (fh *FileHandler) FileSize(fileInd int) (int64, error) {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if fileInd < 0 || fileInd >= len(fh.files) {
		return 0, fmt.Errorf("%w: %d", ErrFileOutOfRange, fileInd)
	}
	return fh.files[fileInd].Size, nil
}

// CurrentFileIndex returns the current file index.
func (fh *FileHandler) CurrentFileIndex() int {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	return fh.fileInd
}

// SetFileIndex switches to another file. All outstanding deadlines are
// dropped and the new file's endpoints primed. Out-of-range or current
// indexes are rejected.
func (fh *FileHandler) SetFileIndex(fileInd int) bool {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if fileInd < 0 || fileInd >= len(fh.files) || fileInd == fh.fileInd {
		return false
	}
	fh.fileInd = fileInd
	fh.primeLocked()
	fh.log.Info("switched file", "file_ind", fileInd, "name", fh.files[fileInd].Name)
	return true
}

// primeLocked resets wanted pieces to just the current file's first and
// last, with immediate deadlines. Callers hold fh.mu or are constructing.
func (fh *FileHandler) primeLocked() {
	fh.t.ClearPieceDeadlines()

	size := fh.files[fh.fileInd].Size
	if size == 0 {
		return
	}
	first, _ := fh.t.PieceAt(fh.fileInd, 0)
	last, _ := fh.t.PieceAt(fh.fileInd, size-1)
	fh.t.SetPieceDeadline(first, 0)
	if last != first {
		fh.t.SetPieceDeadline(last, 0)
	}
}

// IterPieces streams the byte range [start, end) of a file through yield,
// one intra-piece chunk at a time. An end at or below zero means the file
// size. Pieces are required up front with deadlines growing one second per
// piece, so the swarm downloads roughly in playback order; each piece is
// released as soon as its chunk is yielded.
func (fh *FileHandler) IterPieces(ctx context.Context, fileInd int, start, end int64, yield func(chunk []byte) error) error {
	size, err := fh.FileSize(fileInd)
	if err != nil {
		return err
	}
	if end <= 0 || end > size {
		end = size
	}
	if start < 0 {
		start = 0
	}
	if start >= end {
		return nil
	}

	pieceStart, intraStart := fh.t.PieceAt(fileInd, start)
	pieceEnd, _ := fh.t.PieceAt(fileInd, end-1)

	for p := pieceStart; p <= pieceEnd; p++ {
		fh.pg.Require(p, time.Duration(p-pieceStart)*time.Second)
	}
	next := pieceStart
	defer func() {
		for p := next; p <= pieceEnd; p++ {
			fh.pg.Release(p)
		}
	}()

	cur := start
	for p := pieceStart; p <= pieceEnd; p++ {
		data, err := fh.pg.GetPiece(ctx, p)
		if err != nil {
			return err
		}

		lo := int64(0)
		if p == pieceStart {
			lo = intraStart
		}
		hi := int64(len(data))
		if remaining := end - cur; hi-lo > remaining {
			hi = lo + remaining
		}

		if err := yield(data[lo:hi]); err != nil {
			return err
		}
		cur += hi - lo

		fh.pg.Release(p)
		next = p + 1
	}
	return nil
}

// Cleanup stops the observer and removes the torrent with its data.
func (fh *FileHandler) Cleanup() error {
	fh.obs.Stop()
	return fh.t.Remove(true)
}
