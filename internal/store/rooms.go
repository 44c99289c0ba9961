package store

import (
	"fmt"
	"time"
)

// UpsertRooms records the given rooms in a single transaction.
func (db *DB) UpsertRooms(rooms []Room) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, r := range rooms {
		if _, err := tx.Exec(`
			INSERT INTO rooms (room_id, title, creator, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(room_id) DO UPDATE SET
				title = CASE WHEN excluded.title != '' THEN excluded.title ELSE rooms.title END,
				creator = CASE WHEN excluded.creator != '' THEN excluded.creator ELSE rooms.creator END,
				updated_at = excluded.updated_at`,
			r.RoomID, r.Title, r.Creator, now); err != nil {
			return fmt.Errorf("upsert room %q: %w", r.RoomID, err)
		}
	}
	return tx.Commit()
}

// ListRooms returns the cached room directory ordered by title.
func (db *DB) ListRooms() ([]Room, error) {
	rows, err := db.Query(`SELECT room_id, title, creator FROM rooms ORDER BY title, room_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rooms []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.RoomID, &r.Title, &r.Creator); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}
