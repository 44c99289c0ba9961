package store

import (
	"database/sql"
	"time"
)

// MarkSeen records ts as seen in roomID. Timestamps only move forward; an
// older ts leaves the receipt unchanged.
func (db *DB) MarkSeen(roomID, ts string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO receipts (room_id, last_seen_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(room_id) DO UPDATE SET
			last_seen_at = MAX(receipts.last_seen_at, excluded.last_seen_at),
			updated_at = CASE WHEN excluded.last_seen_at > receipts.last_seen_at THEN excluded.updated_at ELSE receipts.updated_at END`,
		roomID, ts, now)
	return err
}

// GetReceipt returns the receipt of a room, or nil if none was recorded.
func (db *DB) GetReceipt(roomID string) (*Receipt, error) {
	var r Receipt
	err := db.QueryRow(`
		SELECT r.room_id, COALESCE(rm.title, ''), r.last_seen_at, r.updated_at
		FROM receipts r
		LEFT JOIN rooms rm ON r.room_id = rm.room_id
		WHERE r.room_id = ?`, roomID).
		Scan(&r.RoomID, &r.Title, &r.LastSeenAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReceipts returns all receipts, most recently updated first. Titles are
// resolved from the room directory when known.
func (db *DB) ListReceipts() ([]Receipt, error) {
	rows, err := db.Query(`
		SELECT r.room_id, COALESCE(rm.title, ''), r.last_seen_at, r.updated_at
		FROM receipts r
		LEFT JOIN rooms rm ON r.room_id = rm.room_id
		ORDER BY r.updated_at DESC, r.room_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var receipts []Receipt
	for rows.Next() {
		var r Receipt
		if err := rows.Scan(&r.RoomID, &r.Title, &r.LastSeenAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}
