package store

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/lazypower/rapport/internal/engine"
)

// ErrNotFound is returned when a record does not exist or belongs to another owner.
var ErrNotFound = errors.New("not found")

// Store is the persistence contract shared by the SQLite database and the
// hosted backend. Every call is scoped to one owner.
type Store interface {
	engine.Source

	CreatePerson(ctx context.Context, ownerID, label, note string) (*engine.RawPerson, error)
	SetRoutine(ctx context.Context, ownerID, personID string, days *int) error
	DeletePerson(ctx context.Context, ownerID, personID string) error

	AddInteraction(ctx context.Context, in NewInteraction) (*engine.RawInteraction, error)
	ListInteractions(ctx context.Context, ownerID string, since time.Time, limit int) ([]engine.RawInteraction, error)

	UpsertProfile(ctx context.Context, ownerID, email string) error

	Ping(ctx context.Context) error
	Describe() string
	Close() error
}

// NewInteraction is the write form of an interaction. A zero HappenedAt
// means now.
type NewInteraction struct {
	OwnerID    string
	PersonID   string
	HappenedAt time.Time
	Kind       engine.Kind
	Mood       *int
	Note       *string
}

// MaxNoteSize caps a stored interaction note, in bytes.
const MaxNoteSize = 4 * 1024

// TruncateNote cuts note to MaxNoteSize bytes on a rune boundary. Every
// Store applies it before writing.
func TruncateNote(note *string) *string {
	if note == nil || len(*note) <= MaxNoteSize {
		return note
	}
	s := *note
	i := MaxNoteSize
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	truncated := s[:i]
	return &truncated
}
