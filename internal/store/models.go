package store

import (
	"time"

	"github.com/google/uuid"
)

// SourceKind tags the serialized video source of a room record.
type SourceKind string

const (
	SourceLink    SourceKind = "link"
	SourceTorrent SourceKind = "torrent"
)

// RoomRecord is the durable form of a watch room. SourceData holds the
// kind-specific payload: the URL for link rooms, the stored .torrent file
// name for torrent rooms.
type RoomRecord struct {
	ID          uuid.UUID
	Name        string
	ImageURL    string
	SourceKind  SourceKind
	SourceData  string
	LastFileInd int
	LastWatchTS float64
	CreatedAt   time.Time
}

// User is a registered account for cookie auth.
type User struct {
	ID           int64
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
