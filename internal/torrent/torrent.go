package torrent

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrMetadataTimeout  = errors.New("timeout waiting for torrent metadata")
	ErrInvalidTorrent   = errors.New("invalid torrent file")
	ErrNoFiles          = errors.New("torrent contains no files")
	ErrFileOutOfRange   = errors.New("file index out of range")
	ErrPieceHaveTimeout = errors.New("timeout waiting for piece download")
	ErrPieceReadTimeout = errors.New("timeout waiting for piece read")
)

// FileInfo describes one file inside a torrent.
type FileInfo struct {
	Name string
	Size int64
}

// Torrent is the handle contract the piece getter and file handler work
// against. The production implementation is Handle; tests substitute fakes.
//
// Deadlines express urgency, not hard cutoffs: a zero deadline means the
// piece is needed immediately, larger values let the swarm scheduler order
// pieces behind more urgent ones.
type Torrent interface {
	// InfoHash returns the lowercase hex info hash.
	InfoHash() string

	// Files lists the torrent's files in index order.
	Files() []FileInfo

	// NumPieces returns the piece count.
	NumPieces() int

	// PieceSize returns the byte length of a piece. Only the last piece
	// may be shorter than the piece length.
	PieceSize(piece int) int64

	// PieceAt maps a byte offset within a file to the piece containing it
	// and the offset of that byte inside the piece.
	PieceAt(fileInd int, offset int64) (piece int, intra int64)

	// HavePiece reports whether a piece is fully downloaded and verified.
	HavePiece(piece int) bool

	// SetPieceDeadline requests a piece with the given urgency.
	SetPieceDeadline(piece int, deadline time.Duration)

	// ClearPieceDeadlines resets every piece to not-wanted.
	ClearPieceDeadlines()

	// ReadPiece starts an asynchronous read of a downloaded piece. The
	// result arrives as a ReadPieceAlert on PopAlerts.
	ReadPiece(piece int)

	// PopAlerts drains the pending alert queue.
	PopAlerts() []Alert

	// Remove drops the torrent, deleting its downloaded data when
	// deleteData is set.
	Remove(deleteData bool) error
}

// Alert is an asynchronous notification from a torrent handle.
type Alert interface {
	alert()
}

// ReadPieceAlert carries the outcome of a ReadPiece call.
type ReadPieceAlert struct {
	Piece int
	Data  []byte
	Err   error
}

func (ReadPieceAlert) alert() {}
