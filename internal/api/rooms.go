package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Mr8lueSky/cooplook-back/internal/room"
	"github.com/Mr8lueSky/cooplook-back/internal/store"
	"github.com/Mr8lueSky/cooplook-back/internal/torrent"
)

type roomSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ImageURL   string `json:"image_url"`
	SourceKind string `json:"source_kind"`
}

type roomDetail struct {
	roomSummary
	Files          []string `json:"files"`
	CurrentFileInd int      `json:"current_file_ind"`
	PlayerSource   string   `json:"player_source"`
	Status         string   `json:"status"`
	VideoTime      float64  `json:"video_time"`
	Viewers        int      `json:"viewers"`
}

func (s *Server) listRooms(c *gin.Context) {
	records, err := s.rooms.List()
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to list rooms")
		return
	}

	out := make([]roomSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, roomSummary{
			ID:         rec.ID.String(),
			Name:       rec.Name,
			ImageURL:   rec.ImageURL,
			SourceKind: string(rec.SourceKind),
		})
	}
	c.JSON(http.StatusOK, out)
}

type createLinkRoomRequest struct {
	Name     string `json:"name" binding:"required"`
	ImageURL string `json:"image_url"`
	Link     string `json:"link" binding:"required,url"`
}

func (s *Server) createRoom(c *gin.Context) {
	rec := &store.RoomRecord{ID: uuid.New()}

	if isMultipart(c) {
		fileName, ok := s.saveTorrentUpload(c, rec.ID)
		if !ok {
			return
		}
		rec.Name = c.PostForm("name")
		rec.ImageURL = c.PostForm("image_url")
		rec.SourceKind = store.SourceTorrent
		rec.SourceData = fileName
		if rec.Name == "" {
			s.discardTorrentFile(fileName)
			errorResponse(c, http.StatusBadRequest, "name is required")
			return
		}
	} else {
		var req createLinkRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errorResponse(c, http.StatusBadRequest, "name and a valid link are required")
			return
		}
		rec.Name = req.Name
		rec.ImageURL = req.ImageURL
		rec.SourceKind = store.SourceLink
		rec.SourceData = req.Link
	}

	if err := s.rooms.Create(rec); err != nil {
		if rec.SourceKind == store.SourceTorrent {
			s.discardTorrentFile(rec.SourceData)
		}
		if errors.Is(err, store.ErrDuplicateName) {
			errorResponse(c, http.StatusBadRequest, "room name already taken")
		} else {
			errorResponse(c, http.StatusInternalServerError, "failed to create room")
		}
		return
	}

	c.JSON(http.StatusCreated, roomSummary{
		ID:         rec.ID.String(),
		Name:       rec.Name,
		ImageURL:   rec.ImageURL,
		SourceKind: string(rec.SourceKind),
	})
}

func (s *Server) getRoom(c *gin.Context) {
	id, rec, ok := s.findRecord(c)
	if !ok {
		return
	}

	rm, ok := s.loadRoom(c, id)
	if !ok {
		return
	}

	kind, videoTime, fileInd := rm.Status()
	c.JSON(http.StatusOK, roomDetail{
		roomSummary: roomSummary{
			ID:         rec.ID.String(),
			Name:       rec.Name,
			ImageURL:   rec.ImageURL,
			SourceKind: string(rec.SourceKind),
		},
		Files:          rm.AvailableFiles(),
		CurrentFileInd: fileInd,
		PlayerSource:   rm.PlayerSource(),
		Status:         kind.String(),
		VideoTime:      videoTime,
		Viewers:        rm.ViewerCount(),
	})
}

type updateRoomRequest struct {
	Name     string `json:"name" binding:"required"`
	ImageURL string `json:"image_url"`
}

func (s *Server) updateRoom(c *gin.Context) {
	id, _, ok := s.findRecord(c)
	if !ok {
		return
	}

	var req updateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "name is required")
		return
	}

	if err := s.rooms.UpdateInfo(id, req.Name, req.ImageURL); err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			errorResponse(c, http.StatusBadRequest, "room name already taken")
		} else {
			errorResponse(c, http.StatusInternalServerError, "failed to update room")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id.String(), "name": req.Name})
}

type updateSourceRequest struct {
	Link string `json:"link" binding:"required,url"`
}

// updateRoomSource swaps the room's video. Live rooms switch immediately;
// the old source's data is torn down either way.
func (s *Server) updateRoomSource(c *gin.Context) {
	id, rec, ok := s.findRecord(c)
	if !ok {
		return
	}
	oldKind, oldData := rec.SourceKind, rec.SourceData

	if isMultipart(c) {
		fileName, ok := s.saveTorrentUpload(c, id)
		if !ok {
			return
		}
		rec.SourceKind = store.SourceTorrent
		rec.SourceData = fileName
	} else {
		var req updateSourceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errorResponse(c, http.StatusBadRequest, "a valid link or torrent upload is required")
			return
		}
		rec.SourceKind = store.SourceLink
		rec.SourceData = req.Link
	}

	if err := s.rooms.UpdateSource(id, rec.SourceKind, rec.SourceData); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to update source")
		return
	}

	// Swap the live room in place so connected viewers move over.
	if rm := s.storage.Peek(id); rm != nil {
		rec.LastFileInd, rec.LastWatchTS = 0, 0
		src, err := s.factory.FromRecord(c.Request.Context(), rec)
		if err != nil {
			// The record is updated; the room reloads the new source
			// on next access instead.
			s.storage.Evict(id)
		} else if err := rm.ReplaceSource(src); err != nil {
			errorResponse(c, http.StatusInternalServerError, "failed to swap source")
			return
		}
	}

	if oldKind == store.SourceTorrent && oldData != rec.SourceData {
		s.discardTorrentFile(oldData)
	}
	c.JSON(http.StatusOK, gin.H{"id": id.String(), "source_kind": string(rec.SourceKind)})
}

func (s *Server) deleteRoom(c *gin.Context) {
	id, rec, ok := s.findRecord(c)
	if !ok {
		return
	}

	s.storage.Evict(id)

	if err := s.rooms.Delete(id); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to delete room")
		return
	}
	if rec.SourceKind == store.SourceTorrent {
		s.discardTorrentFile(rec.SourceData)
	}
	c.Status(http.StatusNoContent)
}

// findRecord parses the room id parameter and fetches its durable record.
func (s *Server) findRecord(c *gin.Context) (uuid.UUID, *store.RoomRecord, bool) {
	id, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid room id")
		return uuid.Nil, nil, false
	}

	rec, err := s.rooms.GetByID(id)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to fetch room")
		return uuid.Nil, nil, false
	}
	if rec == nil {
		errorResponse(c, http.StatusNotFound, "room not found")
		return uuid.Nil, nil, false
	}
	return id, rec, true
}

// loadRoom materializes the live room, mapping load failures to responses.
func (s *Server) loadRoom(c *gin.Context, id uuid.UUID) (*room.Room, bool) {
	rm, err := s.storage.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, room.ErrRoomNotFound):
			errorResponse(c, http.StatusNotFound, "room not found")
		case errors.Is(err, torrent.ErrMetadataTimeout):
			errorResponse(c, http.StatusGatewayTimeout, "timed out fetching torrent metadata")
		default:
			errorResponse(c, http.StatusInternalServerError, "failed to load room")
		}
		return nil, false
	}
	return rm, true
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// saveTorrentUpload validates and persists the uploaded .torrent blob,
// returning its stored file name. Responses are written on failure.
func (s *Server) saveTorrentUpload(c *gin.Context, roomID uuid.UUID) (string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxTorrentFileSize)

	fh, err := c.FormFile("torrent")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			errorResponse(c, http.StatusRequestEntityTooLarge, "torrent file too large")
		} else {
			errorResponse(c, http.StatusBadRequest, "torrent file is required")
		}
		return "", false
	}
	if fh.Size > s.maxTorrentFileSize {
		errorResponse(c, http.StatusRequestEntityTooLarge, "torrent file too large")
		return "", false
	}

	f, err := fh.Open()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "failed to read torrent file")
		return "", false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "failed to read torrent file")
		return "", false
	}

	if _, err := torrent.ValidateTorrentFile(data); err != nil {
		errorResponse(c, http.StatusBadRequest, "not a valid torrent file")
		return "", false
	}

	fileName := roomID.String() + ".torrent"
	if err := os.WriteFile(filepath.Join(s.torrentFilesPath, fileName), data, 0644); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to store torrent file")
		return "", false
	}
	return fileName, true
}

func (s *Server) discardTorrentFile(fileName string) {
	if fileName == "" {
		return
	}
	os.Remove(filepath.Join(s.torrentFilesPath, fileName))
}
