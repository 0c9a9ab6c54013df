package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// RawPerson is a person record as it comes out of a store, before any checks.
type RawPerson struct {
	ID          string `json:"id" validate:"required"`
	Label       string `json:"label" validate:"required"`
	Note        string `json:"note"`
	RoutineDays *int   `json:"routine_days" validate:"omitempty,min=1"`
	CreatedAt   string `json:"created_at"`
	OwnerID     string `json:"owner"`
}

// RawInteraction is an interaction record as it comes out of a store.
// Timestamps are strings because the hosted backend returns ISO-8601 text.
type RawInteraction struct {
	ID         string  `json:"id" validate:"required"`
	PersonID   string  `json:"person_id" validate:"required"`
	HappenedAt string  `json:"happened_at" validate:"required"`
	Kind       string  `json:"kind" validate:"oneof=chat call meet note"`
	Mood       *int    `json:"mood" validate:"omitempty,min=-3,max=3"`
	Note       *string `json:"note"`
	OwnerID    string  `json:"user_id"`
}

// Rejection records a raw record dropped at the boundary.
type Rejection struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

var validate = validator.New()

// ParseTimestamp parses the ISO-8601 forms the stores emit.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// validatePerson checks a raw person and returns the engine form.
func validatePerson(r RawPerson) (Person, error) {
	r.Label = strings.TrimSpace(r.Label)
	if err := validate.Struct(r); err != nil {
		return Person{}, FieldError(err)
	}

	p := Person{
		ID:          r.ID,
		Label:       r.Label,
		Note:        r.Note,
		RoutineDays: r.RoutineDays,
		OwnerID:     r.OwnerID,
	}
	// created_at is informational; a bad value is not worth dropping the person.
	if r.CreatedAt != "" {
		if t, err := ParseTimestamp(r.CreatedAt); err == nil {
			p.CreatedAt = t
		}
	}
	return p, nil
}

// validateInteraction normalizes kind casing, then checks ids, kind, mood
// range and timestamp.
func validateInteraction(r RawInteraction) (Interaction, error) {
	r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
	if err := validate.Struct(r); err != nil {
		return Interaction{}, FieldError(err)
	}

	at, err := ParseTimestamp(r.HappenedAt)
	if err != nil {
		return Interaction{}, err
	}

	return Interaction{
		ID:         r.ID,
		PersonID:   r.PersonID,
		HappenedAt: at,
		Kind:       Kind(r.Kind),
		Mood:       r.Mood,
		Note:       r.Note,
		OwnerID:    r.OwnerID,
	}, nil
}

// NormalizePeople converts raw records, dropping the ones that fail checks.
func NormalizePeople(raws []RawPerson) ([]Person, []Rejection) {
	people := make([]Person, 0, len(raws))
	var rejected []Rejection
	for _, r := range raws {
		p, err := validatePerson(r)
		if err != nil {
			rejected = append(rejected, Rejection{ID: r.ID, Reason: err.Error()})
			continue
		}
		people = append(people, p)
	}
	return people, rejected
}

// NormalizeInteractions converts raw records, dropping the ones that fail checks.
func NormalizeInteractions(raws []RawInteraction) ([]Interaction, []Rejection) {
	out := make([]Interaction, 0, len(raws))
	var rejected []Rejection
	for _, r := range raws {
		ix, err := validateInteraction(r)
		if err != nil {
			rejected = append(rejected, Rejection{ID: r.ID, Reason: err.Error()})
			continue
		}
		out = append(out, ix)
	}
	return out, rejected
}

// FieldError flattens validator output into one readable error.
func FieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}
