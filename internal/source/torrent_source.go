package source

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Mr8lueSky/cooplook-back/internal/streaming"
)

// fileHandler is the slice of torrent.FileHandler the source needs.
type fileHandler interface {
	AllFiles() []string
	FileSize(fileInd int) (int64, error)
	CurrentFileIndex() int
	SetFileIndex(fileInd int) bool
	IterPieces(ctx context.Context, fileInd int, start, end int64, yield func(chunk []byte) error) error
	Cleanup() error
}

// TorrentSource plays files out of a torrent, streaming pieces as they
// arrive from the swarm. It owns the file handler and through it the
// torrent's scratch data.
type TorrentSource struct {
	fh  fileHandler
	log *slog.Logger
}

// NewTorrentSource wraps a file handler as a video source.
func NewTorrentSource(fh fileHandler) *TorrentSource {
	return &TorrentSource{fh: fh, log: slog.With("component", "torrent-source")}
}

// AvailableFiles lists the torrent's file names.
func (s *TorrentSource) AvailableFiles() []string {
	return s.fh.AllFiles()
}

// SetFileIndex switches the played file.
func (s *TorrentSource) SetFileIndex(fileInd int) bool {
	return s.fh.SetFileIndex(fileInd)
}

// PlayerSource returns the room's file endpoint for the current file. The
// index is part of the path so players refetch after a file switch.
func (s *TorrentSource) PlayerSource(roomID uuid.UUID) string {
	return fmt.Sprintf("/files/%s/%d", roomID, s.fh.CurrentFileIndex())
}

// ServeVideo streams the current file, honoring range requests.
func (s *TorrentSource) ServeVideo(w http.ResponseWriter, r *http.Request) {
	fileInd := s.fh.CurrentFileIndex()
	size, err := s.fh.FileSize(fileInd)
	if err != nil {
		s.log.Error("file size lookup failed", "file_ind", fileInd, "error", err)
		http.Error(w, "file not available", http.StatusNotFound)
		return
	}

	name := ""
	if files := s.fh.AllFiles(); fileInd < len(files) {
		name = files[fileInd]
	}

	streaming.ServeContent(w, r, contentTypeFor(name), &fileStreamer{
		fh:      s.fh,
		fileInd: fileInd,
		size:    size,
	})
}

// Cleanup tears down the file handler and the torrent's data.
func (s *TorrentSource) Cleanup() error {
	return s.fh.Cleanup()
}

// fileStreamer binds one file index to the streaming contract.
type fileStreamer struct {
	fh      fileHandler
	fileInd int
	size    int64
}

func (fs *fileStreamer) Size() int64 { return fs.size }

func (fs *fileStreamer) Stream(ctx context.Context, start, end int64, yield func(chunk []byte) error) error {
	return fs.fh.IterPieces(ctx, fs.fileInd, start, end, yield)
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "video/mp4"
}
