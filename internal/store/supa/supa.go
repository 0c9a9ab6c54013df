// Package supa implements store.Store on the hosted Supabase backend the
// original web client used. Tables: people (owner), interactions (user_id),
// profiles. Row-level security and the person→interaction cascade live in the
// hosted database; every call here is also filtered by owner explicitly.
package supa

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lazypower/rapport/internal/engine"
	"github.com/lazypower/rapport/internal/metrics"
	"github.com/lazypower/rapport/internal/store"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

const (
	personColumns      = "id,owner,label,note,routine_days,created_at"
	interactionColumns = "id,user_id,person_id,happened_at,kind,mood,note"
)

// BreakerSettings tunes the circuit breaker in front of the backend.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	MinRequests      uint32
	FailureThreshold float64
}

// DefaultBreakerSettings returns conservative breaker settings.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		MinRequests:      5,
		FailureThreshold: 0.8,
	}
}

// Store talks to Supabase through PostgREST.
type Store struct {
	client *supabase.Client
	cb     *gobreaker.CircuitBreaker
	url    string
}

var _ store.Store = (*Store)(nil)

// New creates a Store for the project at url using the given API key.
// Use the service role key: owner filtering is done here.
func New(url, key string, bs BreakerSettings, log zerolog.Logger) (*Store, error) {
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}

	log = log.With().Str("component", "supabase").Logger()
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "supabase",
		MaxRequests: bs.MaxRequests,
		Interval:    bs.Interval,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bs.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bs.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BackendState.Set(float64(to))
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &Store{client: client, cb: cb, url: url}, nil
}

type personRow struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Label       string `json:"label"`
	Note        string `json:"note"`
	RoutineDays *int   `json:"routine_days"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func (r personRow) raw() engine.RawPerson {
	return engine.RawPerson{
		ID:          r.ID,
		OwnerID:     r.Owner,
		Label:       r.Label,
		Note:        r.Note,
		RoutineDays: r.RoutineDays,
		CreatedAt:   r.CreatedAt,
	}
}

type interactionRow struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	PersonID   string  `json:"person_id"`
	HappenedAt string  `json:"happened_at"`
	Kind       string  `json:"kind"`
	Mood       *int    `json:"mood"`
	Note       *string `json:"note"`
}

func (r interactionRow) raw() engine.RawInteraction {
	return engine.RawInteraction{
		ID:         r.ID,
		OwnerID:    r.UserID,
		PersonID:   r.PersonID,
		HappenedAt: r.HappenedAt,
		Kind:       r.Kind,
		Mood:       r.Mood,
		Note:       r.Note,
	}
}

// do runs one backend call through the breaker. PostgREST calls take no
// context, so cancellation is only checked before the call.
func (s *Store) do(ctx context.Context, op string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if err != nil {
		return fmt.Errorf("supabase %s: %w", op, err)
	}
	return nil
}

// CreatePerson inserts a person owned by ownerID.
func (s *Store) CreatePerson(ctx context.Context, ownerID, label, note string) (*engine.RawPerson, error) {
	row := personRow{
		ID:        uuid.NewString(),
		Owner:     ownerID,
		Label:     label,
		Note:      note,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	var out []personRow
	err := s.do(ctx, "insert person", func() error {
		_, err := s.client.From("people").
			Insert(row, false, "", "representation", "").
			ExecuteTo(&out)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		row = out[0]
	}
	p := row.raw()
	return &p, nil
}

// GetPerson returns a person by id, or nil if it does not exist for ownerID.
func (s *Store) GetPerson(ctx context.Context, ownerID, personID string) (*engine.RawPerson, error) {
	var rows []personRow
	err := s.do(ctx, "get person", func() error {
		_, err := s.client.From("people").
			Select(personColumns, "", false).
			Eq("id", personID).
			Eq("owner", ownerID).
			Limit(1, "").
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	p := rows[0].raw()
	return &p, nil
}

// ListPeople returns all people of ownerID ordered by label.
func (s *Store) ListPeople(ctx context.Context, ownerID string) ([]engine.RawPerson, error) {
	var rows []personRow
	err := s.do(ctx, "list people", func() error {
		_, err := s.client.From("people").
			Select(personColumns, "", false).
			Eq("owner", ownerID).
			Order("label", &postgrest.OrderOpts{Ascending: true}).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]engine.RawPerson, len(rows))
	for i, r := range rows {
		out[i] = r.raw()
	}
	return out, nil
}

// SetRoutine sets the routine cadence in days. nil clears it.
func (s *Store) SetRoutine(ctx context.Context, ownerID, personID string, days *int) error {
	var rows []personRow
	err := s.do(ctx, "set routine", func() error {
		_, err := s.client.From("people").
			Update(map[string]any{"routine_days": days}, "representation", "").
			Eq("id", personID).
			Eq("owner", ownerID).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeletePerson removes a person. The hosted schema cascades interactions.
func (s *Store) DeletePerson(ctx context.Context, ownerID, personID string) error {
	var rows []personRow
	err := s.do(ctx, "delete person", func() error {
		_, err := s.client.From("people").
			Delete("representation", "").
			Eq("id", personID).
			Eq("owner", ownerID).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AddInteraction stores an interaction after checking the person belongs to
// the same owner.
func (s *Store) AddInteraction(ctx context.Context, in store.NewInteraction) (*engine.RawInteraction, error) {
	p, err := s.GetPerson(ctx, in.OwnerID, in.PersonID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, store.ErrNotFound
	}

	at := in.HappenedAt
	if at.IsZero() {
		at = time.Now()
	}
	row := interactionRow{
		ID:         uuid.NewString(),
		UserID:     in.OwnerID,
		PersonID:   in.PersonID,
		HappenedAt: at.UTC().Format(time.RFC3339Nano),
		Kind:       string(in.Kind),
		Mood:       in.Mood,
		Note:       store.TruncateNote(in.Note),
	}
	var out []interactionRow
	err = s.do(ctx, "insert interaction", func() error {
		_, err := s.client.From("interactions").
			Insert(row, false, "", "representation", "").
			ExecuteTo(&out)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		row = out[0]
	}
	ix := row.raw()
	return &ix, nil
}

// ListInteractions returns interactions of ownerID at or after since, newest
// first. A zero since means no lower bound; limit <= 0 means no limit.
func (s *Store) ListInteractions(ctx context.Context, ownerID string, since time.Time, limit int) ([]engine.RawInteraction, error) {
	var rows []interactionRow
	err := s.do(ctx, "list interactions", func() error {
		q := s.client.From("interactions").
			Select(interactionColumns, "", false).
			Eq("user_id", ownerID)
		if !since.IsZero() {
			q = q.Gte("happened_at", since.UTC().Format(time.RFC3339Nano))
		}
		q = q.Order("happened_at", &postgrest.OrderOpts{Ascending: false})
		if limit > 0 {
			q = q.Limit(limit, "")
		}
		_, err := q.ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rawInteractions(rows), nil
}

// ListInteractionsSince returns every interaction of ownerID since the given time.
func (s *Store) ListInteractionsSince(ctx context.Context, ownerID string, since time.Time) ([]engine.RawInteraction, error) {
	return s.ListInteractions(ctx, ownerID, since, 0)
}

// ListPersonInteractions returns the latest interactions with one person, newest first.
func (s *Store) ListPersonInteractions(ctx context.Context, ownerID, personID string, limit int) ([]engine.RawInteraction, error) {
	var rows []interactionRow
	err := s.do(ctx, "list person interactions", func() error {
		_, err := s.client.From("interactions").
			Select(interactionColumns, "", false).
			Eq("user_id", ownerID).
			Eq("person_id", personID).
			Order("happened_at", &postgrest.OrderOpts{Ascending: false}).
			Limit(limit, "").
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rawInteractions(rows), nil
}

// UpsertProfile records the signed-in user.
func (s *Store) UpsertProfile(ctx context.Context, ownerID, email string) error {
	row := map[string]any{"id": ownerID, "email": nil}
	if email != "" {
		row["email"] = email
	}
	return s.do(ctx, "upsert profile", func() error {
		_, _, err := s.client.From("profiles").
			Upsert(row, "id", "minimal", "").
			Execute()
		return err
	})
}

// Ping issues a HEAD-style count query against people.
func (s *Store) Ping(ctx context.Context) error {
	return s.do(ctx, "ping", func() error {
		_, _, err := s.client.From("people").
			Select("id", "exact", true).
			Limit(1, "").
			Execute()
		return err
	})
}

// Describe names the backend for health output.
func (s *Store) Describe() string {
	return "supabase:" + s.url
}

// Close is a no-op; the HTTP client holds no resources worth releasing.
func (s *Store) Close() error {
	return nil
}

func rawInteractions(rows []interactionRow) []engine.RawInteraction {
	out := make([]engine.RawInteraction, len(rows))
	for i, r := range rows {
		out[i] = r.raw()
	}
	return out
}

// State reports the breaker state. The health endpoint includes it.
func (s *Store) State() string {
	return s.cb.State().String()
}

