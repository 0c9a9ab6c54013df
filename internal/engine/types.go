package engine

import "time"

// Kind is the type of a logged interaction.
type Kind string

const (
	KindChat Kind = "chat"
	KindCall Kind = "call"
	KindMeet Kind = "meet"
	KindNote Kind = "note"
)

// AllKinds is the fixed kind enumeration. Variety is measured against its size.
var AllKinds = []Kind{KindChat, KindCall, KindMeet, KindNote}

// Valid reports whether k is one of AllKinds.
func (k Kind) Valid() bool {
	for _, v := range AllKinds {
		if k == v {
			return true
		}
	}
	return false
}

// Mood bounds. Interactions carry an optional mood in [MinMood, MaxMood].
const (
	MinMood = -3
	MaxMood = 3
)

// Person is a tracked contact.
type Person struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Note        string    `json:"note,omitempty"`
	RoutineDays *int      `json:"routine_days,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	OwnerID     string    `json:"-"`
}

// Interaction is a single logged contact event. Immutable once stored.
type Interaction struct {
	ID         string    `json:"id"`
	PersonID   string    `json:"person_id"`
	HappenedAt time.Time `json:"happened_at"`
	Kind       Kind      `json:"kind"`
	Mood       *int      `json:"mood"`
	Note       *string   `json:"note"`
	OwnerID    string    `json:"-"`
}

// Metric is the per-person derived tuple behind the radar view. Every field
// is in [0,100]. Computed per request and never persisted.
type Metric struct {
	PersonID  string  `json:"person_id"`
	Label     string  `json:"label"`
	Frequency float64 `json:"frequency"`
	Recency   float64 `json:"recency"`
	Variety   float64 `json:"variety"`
	MoodAvg   float64 `json:"mood_avg"`
}

// Composite is the unweighted mean of frequency, recency and variety.
// It is the radar ranking key and unrelated to RelationshipScore.
func (m Metric) Composite() float64 {
	return (m.Frequency + m.Recency + m.Variety) / 3
}

// Suggestion is one next-action card.
type Suggestion struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Idea is one card of the ideas view.
type Idea struct {
	PersonID string     `json:"person_id"`
	Label    string     `json:"label"`
	Items    []string   `json:"items"`
	LastAt   *time.Time `json:"last_at,omitempty"`
}

const day = 24 * time.Hour

// daysBetween returns the elapsed fractional days from t to now.
func daysBetween(t, now time.Time) float64 {
	return float64(now.Sub(t)) / float64(day)
}
