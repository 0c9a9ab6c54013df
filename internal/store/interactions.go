package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lazypower/rapport/internal/engine"
)

const interactionColumns = `id, owner_id, person_id, happened_at, kind, mood, note`

// AddInteraction stores an interaction. The person must belong to the same
// owner, otherwise ErrNotFound is returned. Notes are truncated to 4KB.
func (db *DB) AddInteraction(ctx context.Context, in NewInteraction) (*engine.RawInteraction, error) {
	var owned int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM people WHERE id = ? AND owner_id = ?
	`, in.PersonID, in.OwnerID).Scan(&owned)
	if err != nil {
		return nil, fmt.Errorf("check person: %w", err)
	}
	if owned == 0 {
		return nil, ErrNotFound
	}

	at := in.HappenedAt
	if at.IsZero() {
		at = time.Now()
	}
	note := TruncateNote(in.Note)

	ix := engine.RawInteraction{
		ID:         uuid.NewString(),
		OwnerID:    in.OwnerID,
		PersonID:   in.PersonID,
		HappenedAt: formatTS(at),
		Kind:       string(in.Kind),
		Mood:       in.Mood,
		Note:       note,
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO interactions (`+interactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ix.ID, ix.OwnerID, ix.PersonID, ix.HappenedAt, ix.Kind, nullInt(ix.Mood), nullString(ix.Note))
	if err != nil {
		return nil, fmt.Errorf("insert interaction: %w", err)
	}
	return &ix, nil
}

// ListInteractions returns interactions of ownerID at or after since, newest
// first. A zero since means no lower bound; limit <= 0 means no limit.
func (db *DB) ListInteractions(ctx context.Context, ownerID string, since time.Time, limit int) ([]engine.RawInteraction, error) {
	query := `SELECT ` + interactionColumns + ` FROM interactions WHERE owner_id = ?`
	args := []any{ownerID}
	if !since.IsZero() {
		query += ` AND happened_at >= ?`
		args = append(args, formatTS(since))
	}
	query += ` ORDER BY happened_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()
	return scanInteractions(rows)
}

// ListInteractionsSince returns every interaction of ownerID since the given time.
func (db *DB) ListInteractionsSince(ctx context.Context, ownerID string, since time.Time) ([]engine.RawInteraction, error) {
	return db.ListInteractions(ctx, ownerID, since, 0)
}

// ListPersonInteractions returns the latest interactions with one person, newest first.
func (db *DB) ListPersonInteractions(ctx context.Context, ownerID, personID string, limit int) ([]engine.RawInteraction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+interactionColumns+` FROM interactions
		WHERE owner_id = ? AND person_id = ?
		ORDER BY happened_at DESC LIMIT ?
	`, ownerID, personID, limit)
	if err != nil {
		return nil, fmt.Errorf("list person interactions: %w", err)
	}
	defer rows.Close()
	return scanInteractions(rows)
}

func scanInteractions(rows *sql.Rows) ([]engine.RawInteraction, error) {
	out := []engine.RawInteraction{}
	for rows.Next() {
		var ix engine.RawInteraction
		var mood sql.NullInt64
		var note sql.NullString
		if err := rows.Scan(&ix.ID, &ix.OwnerID, &ix.PersonID, &ix.HappenedAt, &ix.Kind, &mood, &note); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		if mood.Valid {
			m := int(mood.Int64)
			ix.Mood = &m
		}
		if note.Valid {
			n := note.String
			ix.Note = &n
		}
		out = append(out, ix)
	}
	return out, rows.Err()
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
