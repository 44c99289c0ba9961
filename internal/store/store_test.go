package store

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "receipts.db")
	db, err := OpenMigrated(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (receipts + rooms)", result.Version)
	}
}

func TestMarkSeenAndGet(t *testing.T) {
	db := testDB(t)

	if err := db.MarkSeen("r1", "2024-01-01T10:00:00Z"); err != nil {
		t.Fatal(err)
	}
	r, err := db.GetReceipt("r1")
	if err != nil {
		t.Fatal(err)
	}
	if r == nil || r.LastSeenAt != "2024-01-01T10:00:00Z" {
		t.Fatalf("receipt = %+v", r)
	}
	if r.UpdatedAt == 0 {
		t.Error("updated_at not set")
	}

	missing, err := db.GetReceipt("absent")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing receipt, got %+v", missing)
	}
}

func TestMarkSeenOnlyMovesForward(t *testing.T) {
	db := testDB(t)

	steps := []struct {
		ts   string
		want string
	}{
		{"2024-01-02T00:00:00Z", "2024-01-02T00:00:00Z"},
		{"2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z"},
		{"2024-01-03T00:00:00Z", "2024-01-03T00:00:00Z"},
	}
	for _, s := range steps {
		if err := db.MarkSeen("r1", s.ts); err != nil {
			t.Fatal(err)
		}
		r, err := db.GetReceipt("r1")
		if err != nil {
			t.Fatal(err)
		}
		if r.LastSeenAt != s.want {
			t.Errorf("after MarkSeen(%s) last_seen_at = %s, want %s", s.ts, r.LastSeenAt, s.want)
		}
	}
}

func TestListReceiptsResolvesTitles(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertRooms([]Room{{RoomID: "r1", Title: "Room by alice", Creator: "alice"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkSeen("r1", "T1"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkSeen("r2", "T2"); err != nil {
		t.Fatal(err)
	}

	receipts, err := db.ListReceipts()
	if err != nil {
		t.Fatal(err)
	}
	if len(receipts) != 2 {
		t.Fatalf("got %d receipts, want 2", len(receipts))
	}
	titles := map[string]string{}
	for _, r := range receipts {
		titles[r.RoomID] = r.Title
	}
	if titles["r1"] != "Room by alice" || titles["r2"] != "" {
		t.Errorf("titles = %v", titles)
	}
}

func TestUpsertRoomsKeepsKnownFields(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertRooms([]Room{{RoomID: "r1", Title: "First", Creator: "alice"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertRooms([]Room{{RoomID: "r1"}, {RoomID: "r0", Title: "Another"}}); err != nil {
		t.Fatal(err)
	}

	rooms, err := db.ListRooms()
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 2 {
		t.Fatalf("got %d rooms, want 2", len(rooms))
	}
	if rooms[0].Title != "Another" || rooms[1].Title != "First" || rooms[1].Creator != "alice" {
		t.Errorf("rooms = %+v", rooms)
	}
}

func TestReset(t *testing.T) {
	db := testDB(t)

	if err := db.MarkSeen("r1", "T1"); err != nil {
		t.Fatal(err)
	}
	if err := db.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	receipts, err := db.ListReceipts()
	if err != nil {
		t.Fatal(err)
	}
	if len(receipts) != 0 {
		t.Errorf("got %d receipts after Reset, want 0", len(receipts))
	}
}
