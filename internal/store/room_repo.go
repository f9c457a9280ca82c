package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrDuplicateName reports a create or rename clashing with an existing
// row's unique name.
var ErrDuplicateName = errors.New("name already taken")

// RoomRepository handles room database operations
type RoomRepository struct {
	db *DB
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(db *DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create adds a new room record
func (r *RoomRepository) Create(room *RoomRecord) error {
	err := r.db.QueryRow(
		`INSERT INTO rooms (id, name, image_url, source_kind, source_data, last_file_ind, last_watch_ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		room.ID.String(), room.Name, room.ImageURL, string(room.SourceKind),
		room.SourceData, room.LastFileInd, room.LastWatchTS,
	).Scan(&room.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateName, room.Name)
		}
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

// GetByID retrieves a room record by id, nil when absent
func (r *RoomRepository) GetByID(id uuid.UUID) (*RoomRecord, error) {
	room := &RoomRecord{}
	var rawID, rawKind string
	err := r.db.QueryRow(
		`SELECT id, name, image_url, source_kind, source_data, last_file_ind, last_watch_ts, created_at
		 FROM rooms WHERE id = $1`,
		id.String(),
	).Scan(&rawID, &room.Name, &room.ImageURL, &rawKind, &room.SourceData,
		&room.LastFileInd, &room.LastWatchTS, &room.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	room.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse room id: %w", err)
	}
	room.SourceKind = SourceKind(rawKind)
	return room, nil
}

// List returns all room records ordered by name
func (r *RoomRepository) List() ([]*RoomRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, name, image_url, source_kind, source_data, last_file_ind, last_watch_ts, created_at
		 FROM rooms ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*RoomRecord
	for rows.Next() {
		room := &RoomRecord{}
		var rawID, rawKind string
		if err := rows.Scan(&rawID, &room.Name, &room.ImageURL, &rawKind, &room.SourceData,
			&room.LastFileInd, &room.LastWatchTS, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		room.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse room id: %w", err)
		}
		room.SourceKind = SourceKind(rawKind)
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

// UpdateWatchState persists the last playback position and file index
func (r *RoomRepository) UpdateWatchState(id uuid.UUID, watchTS float64, fileInd int) error {
	_, err := r.db.Exec(
		`UPDATE rooms SET last_watch_ts = $1, last_file_ind = $2 WHERE id = $3`,
		watchTS, fileInd, id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update watch state: %w", err)
	}
	return nil
}

// RecordWatchState is UpdateWatchState under the name the room package's
// persistence hook expects.
func (r *RoomRepository) RecordWatchState(id uuid.UUID, watchTS float64, fileInd int) error {
	return r.UpdateWatchState(id, watchTS, fileInd)
}

// UpdateInfo changes a room's name and image
func (r *RoomRepository) UpdateInfo(id uuid.UUID, name, imageURL string) error {
	_, err := r.db.Exec(
		`UPDATE rooms SET name = $1, image_url = $2 WHERE id = $3`,
		name, imageURL, id.String(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		return fmt.Errorf("failed to update room: %w", err)
	}
	return nil
}

// UpdateSource swaps a room's video source and resets its progress
func (r *RoomRepository) UpdateSource(id uuid.UUID, kind SourceKind, data string) error {
	_, err := r.db.Exec(
		`UPDATE rooms SET source_kind = $1, source_data = $2, last_file_ind = 0, last_watch_ts = 0 WHERE id = $3`,
		string(kind), data, id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update room source: %w", err)
	}
	return nil
}

// Delete removes a room record
func (r *RoomRepository) Delete(id uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM rooms WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("room not found")
	}

	return nil
}

// isUniqueViolation matches the sqlite unique constraint error without
// depending on driver error codes.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
