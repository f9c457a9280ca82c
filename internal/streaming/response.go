package streaming

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// Streamer provides sequential access to one video file. Stream yields the
// bytes of [start, end) in order; an end at or below zero means the full
// size. Yield errors abort the stream and propagate out.
type Streamer interface {
	Size() int64
	Stream(ctx context.Context, start, end int64, yield func(chunk []byte) error) error
}

// ServeContent answers a video request from a streamer, honoring single
// and multipart byte ranges. Chunks are flushed as they arrive so players
// start rendering long before the transfer completes; a dropped client
// cancels the stream through the request context.
func ServeContent(w http.ResponseWriter, r *http.Request, contentType string, s Streamer) {
	size := s.Size()

	ranges, err := ParseRange(r.Header.Get("Range"), size)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	w.Header().Set("Accept-Ranges", "bytes")

	switch len(ranges) {
	case 0:
		serveFull(w, r, contentType, s, size)
	case 1:
		servePart(w, r, contentType, s, size, ranges[0])
	default:
		serveMultipart(w, r, contentType, s, size, ranges)
	}
}

func serveFull(w http.ResponseWriter, r *http.Request, contentType string, s Streamer, size int64) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)

	streamRange(w, r, s, ByteRange{Start: 0, End: size})
}

func servePart(w http.ResponseWriter, r *http.Request, contentType string, s Streamer, size int64, br ByteRange) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(br.Length(), 10))
	w.Header().Set("Content-Range", contentRange(br, size))
	w.WriteHeader(http.StatusPartialContent)

	streamRange(w, r, s, br)
}

func serveMultipart(w http.ResponseWriter, r *http.Request, contentType string, s Streamer, size int64, ranges []ByteRange) {
	boundary := newBoundary()
	w.Header().Set("Content-Type", "multipart/byteranges; boundary="+boundary)
	w.WriteHeader(http.StatusPartialContent)

	for _, br := range ranges {
		header := fmt.Sprintf("\n--%s\nContent-Type: %s\nContent-Range: %s\n\n",
			boundary, contentType, contentRange(br, size))
		if _, err := w.Write([]byte(header)); err != nil {
			return
		}
		if !streamRange(w, r, s, br) {
			return
		}
	}
	w.Write([]byte(fmt.Sprintf("\n--%s--\n", boundary)))
}

// streamRange pumps one byte range to the client, flushing per chunk.
// It reports whether the whole range was delivered.
func streamRange(w http.ResponseWriter, r *http.Request, s Streamer, br ByteRange) bool {
	flusher, _ := w.(http.Flusher)

	err := s.Stream(r.Context(), br.Start, br.End, func(chunk []byte) error {
		if _, err := w.Write(chunk); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		if r.Context().Err() == nil {
			slog.Warn("video stream aborted",
				"component", "streaming",
				"start", br.Start,
				"end", br.End,
				"error", err,
			)
		}
		return false
	}
	return true
}

func contentRange(br ByteRange, size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", br.Start, br.End-1, size)
}

// newBoundary returns a random 26-char hex multipart boundary.
func newBoundary() string {
	var b [13]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
