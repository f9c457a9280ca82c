package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// countingWriter tallies the bytes a stream actually delivered.
type countingWriter struct {
	gin.ResponseWriter
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.n += int64(n)
	return n, err
}

// serveFile streams a room's current video file. The file index in the
// path exists so player URLs change on file switches; the room always
// serves whatever file it is on.
func (s *Server) serveFile(c *gin.Context) {
	id, _, ok := s.findRecord(c)
	if !ok {
		return
	}
	if _, err := strconv.Atoi(c.Param("file_ind")); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid file index")
		return
	}

	rm, ok := s.loadRoom(c, id)
	if !ok {
		return
	}

	if s.metrics != nil {
		s.metrics.StreamRequests.Inc()
		cw := &countingWriter{ResponseWriter: c.Writer}
		rm.ServeVideo(cw, c.Request)
		s.metrics.StreamBytes.Add(float64(cw.n))
		return
	}
	rm.ServeVideo(c.Writer, c.Request)
}
