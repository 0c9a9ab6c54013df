package store

import (
	"testing"
)

func TestOpenMemory(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if db.Path != ":memory:" {
		t.Errorf("Path = %q, want :memory:", db.Path)
	}
}

func TestSchemaVersion(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 3 {
		t.Errorf("SchemaVersion = %d, want 3", v)
	}
}

func TestTablesExist(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	tables := []string{"schema_versions", "people", "interactions", "profiles"}
	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestInteractionConstraints(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		INSERT INTO people (id, owner_id, label, created_at)
		VALUES ('p1', 'u1', 'Alice', '2025-01-01T00:00:00.000000Z')
	`)
	if err != nil {
		t.Fatalf("insert person: %v", err)
	}

	// Valid insert
	_, err = db.Exec(`
		INSERT INTO interactions (id, owner_id, person_id, happened_at, kind, mood)
		VALUES ('i1', 'u1', 'p1', '2025-01-02T00:00:00.000000Z', 'call', -3)
	`)
	if err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}

	// Invalid kind
	_, err = db.Exec(`
		INSERT INTO interactions (id, owner_id, person_id, happened_at, kind)
		VALUES ('i2', 'u1', 'p1', '2025-01-02T00:00:00.000000Z', 'email')
	`)
	if err == nil {
		t.Error("expected error for invalid kind, got nil")
	}

	// Mood out of range
	_, err = db.Exec(`
		INSERT INTO interactions (id, owner_id, person_id, happened_at, kind, mood)
		VALUES ('i3', 'u1', 'p1', '2025-01-02T00:00:00.000000Z', 'chat', 4)
	`)
	if err == nil {
		t.Error("expected error for mood 4, got nil")
	}

	// Unknown person
	_, err = db.Exec(`
		INSERT INTO interactions (id, owner_id, person_id, happened_at, kind)
		VALUES ('i4', 'u1', 'nobody', '2025-01-02T00:00:00.000000Z', 'chat')
	`)
	if err == nil {
		t.Error("expected foreign key error for unknown person, got nil")
	}
}

func TestRoutineConstraint(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		INSERT INTO people (id, owner_id, label, routine_days, created_at)
		VALUES ('p1', 'u1', 'Alice', 0, '2025-01-01T00:00:00.000000Z')
	`)
	if err == nil {
		t.Error("expected error for routine_days 0, got nil")
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	// Running migrate again should be a no-op
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 3 {
		t.Errorf("SchemaVersion after re-migrate = %d, want 3", v)
	}
}

func TestWALMode(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	var mode string
	err = db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	if err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	// In-memory databases may use "memory" mode instead of WAL
	if mode != "wal" && mode != "memory" {
		t.Errorf("journal_mode = %q, want wal or memory", mode)
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	var fk int
	err = db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}
