package streaming

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// sliceStreamer serves a byte slice in fixed-size chunks, mimicking a
// piece-backed source.
type sliceStreamer struct {
	data      []byte
	chunkSize int64
}

func (s *sliceStreamer) Size() int64 { return int64(len(s.data)) }

func (s *sliceStreamer) Stream(ctx context.Context, start, end int64, yield func([]byte) error) error {
	if end <= 0 || end > s.Size() {
		end = s.Size()
	}
	for cur := start; cur < end; {
		if err := ctx.Err(); err != nil {
			return err
		}
		hi := cur + s.chunkSize
		if hi > end {
			hi = end
		}
		if err := yield(s.data[cur:hi]); err != nil {
			return err
		}
		cur = hi
	}
	return nil
}

func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return data
}

func serve(t *testing.T, s Streamer, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/video", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	w := httptest.NewRecorder()
	ServeContent(w, req, "video/mp4", s)
	return w
}

func TestServeContentFull(t *testing.T) {
	data := testData(5000)
	w := serve(t, &sliceStreamer{data: data, chunkSize: 512}, "")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Content-Length"); got != "5000" {
		t.Errorf("Content-Length = %q, want 5000", got)
	}
	if got := w.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q, want bytes", got)
	}
	if !bytes.Equal(w.Body.Bytes(), data) {
		t.Error("body does not match source data")
	}
}

func TestServeContentSingleRange(t *testing.T) {
	// A seek one piece-multiple into the file, the common player pattern.
	data := testData(2 * 1024 * 1024)
	s := &sliceStreamer{data: data, chunkSize: 262144}
	w := serve(t, s, "bytes=1000000-1999999")

	if w.Code != http.StatusPartialContent {
		t.Errorf("status = %d, want 206", w.Code)
	}
	if got := w.Header().Get("Content-Length"); got != "1000000" {
		t.Errorf("Content-Length = %q, want 1000000", got)
	}
	wantCR := "bytes 1000000-1999999/2097152"
	if got := w.Header().Get("Content-Range"); got != wantCR {
		t.Errorf("Content-Range = %q, want %q", got, wantCR)
	}
	if !bytes.Equal(w.Body.Bytes(), data[1000000:2000000]) {
		t.Error("body does not match requested range")
	}
}

func TestServeContentOpenEndedRange(t *testing.T) {
	data := testData(1000)
	w := serve(t, &sliceStreamer{data: data, chunkSize: 64}, "bytes=900-")

	if w.Code != http.StatusPartialContent {
		t.Errorf("status = %d, want 206", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), data[900:]) {
		t.Error("body does not match range tail")
	}
}

func TestServeContentUnsatisfiable(t *testing.T) {
	data := testData(1000)
	w := serve(t, &sliceStreamer{data: data, chunkSize: 64}, "bytes=5000-")

	if w.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Errorf("status = %d, want 416", w.Code)
	}
	if got := w.Header().Get("Content-Range"); got != "bytes */1000" {
		t.Errorf("Content-Range = %q, want bytes */1000", got)
	}
}

func TestServeContentMultipart(t *testing.T) {
	data := testData(1000)
	w := serve(t, &sliceStreamer{data: data, chunkSize: 64}, "bytes=0-99,500-599")

	if w.Code != http.StatusPartialContent {
		t.Errorf("status = %d, want 206", w.Code)
	}
	ct := w.Header().Get("Content-Type")
	boundary, ok := strings.CutPrefix(ct, "multipart/byteranges; boundary=")
	if !ok {
		t.Fatalf("Content-Type = %q, want multipart/byteranges", ct)
	}
	if len(boundary) != 26 {
		t.Errorf("boundary %q has length %d, want 26 hex chars", boundary, len(boundary))
	}

	body := w.Body.String()
	for _, cr := range []string{"bytes 0-99/1000", "bytes 500-599/1000"} {
		if !strings.Contains(body, "Content-Range: "+cr) {
			t.Errorf("body missing part header %q", cr)
		}
	}
	if !strings.Contains(body, fmt.Sprintf("\n--%s--\n", boundary)) {
		t.Error("body missing closing boundary")
	}
	if !bytes.Contains(w.Body.Bytes(), data[0:100]) {
		t.Error("body missing first range payload")
	}
	if !bytes.Contains(w.Body.Bytes(), data[500:600]) {
		t.Error("body missing second range payload")
	}
}

func TestServeContentMalformedRangeFallsBack(t *testing.T) {
	data := testData(100)
	w := serve(t, &sliceStreamer{data: data, chunkSize: 16}, "bytes=oops")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for ignored malformed header", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), data) {
		t.Error("body does not match full data")
	}
}
