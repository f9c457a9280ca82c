package source

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestHTTPLinkSource(t *testing.T) {
	s := NewHTTPLinkSource("http://cdn.example.com/videos/movie.mp4")

	files := s.AvailableFiles()
	if len(files) != 1 || files[0] != "movie.mp4" {
		t.Errorf("AvailableFiles() = %v, want [movie.mp4]", files)
	}
	if s.SetFileIndex(1) {
		t.Error("SetFileIndex() = true for a single-file source")
	}
	if got := s.PlayerSource(uuid.New()); got != "http://cdn.example.com/videos/movie.mp4" {
		t.Errorf("PlayerSource() = %q, want the link", got)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/files/x/0", nil)
	s.ServeVideo(w, r)
	if w.Code != http.StatusSeeOther {
		t.Errorf("ServeVideo() status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "http://cdn.example.com/videos/movie.mp4" {
		t.Errorf("Location = %q, want the link", loc)
	}

	if err := s.Cleanup(); err != nil {
		t.Errorf("Cleanup() error = %v", err)
	}
}

// fakeFileHandler serves a byte slice per file for torrent source tests.
type fakeFileHandler struct {
	files     map[string][]byte
	names     []string
	fileInd   int
	cleanedUp bool
}

func (f *fakeFileHandler) AllFiles() []string { return f.names }

func (f *fakeFileHandler) FileSize(fileInd int) (int64, error) {
	return int64(len(f.files[f.names[fileInd]])), nil
}

func (f *fakeFileHandler) CurrentFileIndex() int { return f.fileInd }

func (f *fakeFileHandler) SetFileIndex(fileInd int) bool {
	if fileInd < 0 || fileInd >= len(f.names) || fileInd == f.fileInd {
		return false
	}
	f.fileInd = fileInd
	return true
}

func (f *fakeFileHandler) IterPieces(ctx context.Context, fileInd int, start, end int64, yield func([]byte) error) error {
	data := f.files[f.names[fileInd]]
	if end <= 0 || end > int64(len(data)) {
		end = int64(len(data))
	}
	return yield(data[start:end])
}

func (f *fakeFileHandler) Cleanup() error {
	f.cleanedUp = true
	return nil
}

func TestTorrentSourceServeVideo(t *testing.T) {
	data := make([]byte, 500)
	for i := range data {
		data[i] = byte(i)
	}
	fh := &fakeFileHandler{
		files: map[string][]byte{"e1.mkv": data, "e2.mkv": {1, 2, 3}},
		names: []string{"e1.mkv", "e2.mkv"},
	}
	s := NewTorrentSource(fh)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/files/x/0", nil)
	r.Header.Set("Range", "bytes=100-199")
	s.ServeVideo(w, r)

	if w.Code != http.StatusPartialContent {
		t.Errorf("status = %d, want 206", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), data[100:200]) {
		t.Error("body does not match requested range")
	}
	if ct := w.Header().Get("Content-Type"); ct == "" {
		t.Error("Content-Type not set")
	}
}

func TestTorrentSourcePlayerSourceTracksFile(t *testing.T) {
	fh := &fakeFileHandler{
		files: map[string][]byte{"e1.mkv": {0}, "e2.mkv": {0}},
		names: []string{"e1.mkv", "e2.mkv"},
	}
	s := NewTorrentSource(fh)
	id := uuid.New()

	if got, want := s.PlayerSource(id), "/files/"+id.String()+"/0"; got != want {
		t.Errorf("PlayerSource() = %q, want %q", got, want)
	}

	if !s.SetFileIndex(1) {
		t.Fatal("SetFileIndex(1) = false")
	}
	if got, want := s.PlayerSource(id), "/files/"+id.String()+"/1"; got != want {
		t.Errorf("PlayerSource() after switch = %q, want %q", got, want)
	}
}

func TestTorrentSourceCleanup(t *testing.T) {
	fh := &fakeFileHandler{files: map[string][]byte{"a": {0}}, names: []string{"a"}}
	s := NewTorrentSource(fh)
	if err := s.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if !fh.cleanedUp {
		t.Error("Cleanup() did not reach the file handler")
	}
}
