package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lazypower/rapport/internal/engine"
)

const personColumns = `id, owner_id, label, note, routine_days, created_at`

// CreatePerson inserts a person owned by ownerID.
func (db *DB) CreatePerson(ctx context.Context, ownerID, label, note string) (*engine.RawPerson, error) {
	p := engine.RawPerson{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Label:     label,
		Note:      note,
		CreatedAt: formatTS(time.Now()),
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO people (id, owner_id, label, note, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.OwnerID, p.Label, p.Note, p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert person: %w", err)
	}
	return &p, nil
}

// GetPerson returns a person by id, or nil if it does not exist for ownerID.
func (db *DB) GetPerson(ctx context.Context, ownerID, personID string) (*engine.RawPerson, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+personColumns+` FROM people WHERE id = ? AND owner_id = ?
	`, personID, ownerID)

	p, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

// ListPeople returns all people of ownerID ordered by label.
func (db *DB) ListPeople(ctx context.Context, ownerID string) ([]engine.RawPerson, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+personColumns+` FROM people WHERE owner_id = ? ORDER BY label, created_at
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	people := []engine.RawPerson{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, *p)
	}
	return people, rows.Err()
}

// SetRoutine sets the routine cadence in days. nil clears it.
func (db *DB) SetRoutine(ctx context.Context, ownerID, personID string, days *int) error {
	var v sql.NullInt64
	if days != nil {
		v = sql.NullInt64{Int64: int64(*days), Valid: true}
	}
	result, err := db.ExecContext(ctx, `
		UPDATE people SET routine_days = ? WHERE id = ? AND owner_id = ?
	`, v, personID, ownerID)
	if err != nil {
		return fmt.Errorf("set routine: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePerson removes a person; their interactions go with them.
func (db *DB) DeletePerson(ctx context.Context, ownerID, personID string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM people WHERE id = ? AND owner_id = ?`, personID, ownerID)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertProfile records the signed-in user.
func (db *DB) UpsertProfile(ctx context.Context, ownerID, email string) error {
	var e sql.NullString
	if email != "" {
		e = sql.NullString{String: email, Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email, updated_at = excluded.updated_at
	`, ownerID, e, formatTS(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(s scanner) (*engine.RawPerson, error) {
	var p engine.RawPerson
	var routine sql.NullInt64
	if err := s.Scan(&p.ID, &p.OwnerID, &p.Label, &p.Note, &routine, &p.CreatedAt); err != nil {
		return nil, err
	}
	if routine.Valid {
		d := int(routine.Int64)
		p.RoutineDays = &d
	}
	return &p, nil
}
