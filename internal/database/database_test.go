package database

import (
	"path/filepath"
	"testing"
)

func TestOpenAppliesPragmas(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("read foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var busy int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatalf("read busy_timeout: %v", err)
	}
	if busy != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", busy)
	}
}

func TestForeignKeyCascade(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`INSERT INTO users (google_sub, name, avatar_url) VALUES ('sub-1', 'Alice', '')`); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO day_schedules (owner_user_id, date) VALUES (1, '2026-05-01')`); err != nil {
		t.Fatalf("insert schedule: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO schedule_items (schedule_id, title, start_time) VALUES (1, 'Breakfast', '2026-05-01T08:00:00Z')`); err != nil {
		t.Fatalf("insert item: %v", err)
	}

	if _, err := db.Exec(`DELETE FROM day_schedules WHERE id = 1`); err != nil {
		t.Fatalf("delete schedule: %v", err)
	}

	var orphans int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schedule_items`).Scan(&orphans); err != nil {
		t.Fatalf("count items: %v", err)
	}
	if orphans != 0 {
		t.Errorf("orphan items = %d, want 0 after cascade delete", orphans)
	}
}
