package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "people: tracked contacts",
		SQL: `
CREATE TABLE people (
    id           TEXT PRIMARY KEY,
    owner_id     TEXT NOT NULL,
    label        TEXT NOT NULL,
    note         TEXT NOT NULL DEFAULT '',
    routine_days INTEGER CHECK (routine_days IS NULL OR routine_days > 0),
    created_at   TEXT NOT NULL
);

CREATE INDEX idx_people_owner_label ON people(owner_id, label);
`,
	},
	{
		Version:     2,
		Description: "interactions: logged contact events",
		SQL: `
CREATE TABLE interactions (
    id           TEXT PRIMARY KEY,
    owner_id     TEXT NOT NULL,
    person_id    TEXT NOT NULL,
    happened_at  TEXT NOT NULL,
    kind         TEXT NOT NULL CHECK (kind IN ('chat', 'call', 'meet', 'note')),
    mood         INTEGER CHECK (mood IS NULL OR mood BETWEEN -3 AND 3),
    note         TEXT,

    FOREIGN KEY (person_id) REFERENCES people(id) ON DELETE CASCADE
);

CREATE INDEX idx_interactions_owner_time  ON interactions(owner_id, happened_at DESC);
CREATE INDEX idx_interactions_person_time ON interactions(person_id, happened_at DESC);
`,
	},
	{
		Version:     3,
		Description: "profiles: one row per signed-in user",
		SQL: `
CREATE TABLE profiles (
    id         TEXT PRIMARY KEY,
    email      TEXT,
    updated_at TEXT NOT NULL
);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
