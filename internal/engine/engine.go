package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lazypower/rapport/internal/metrics"
	"github.com/rs/zerolog"
)

// ErrPersonNotFound is returned when a report targets an unknown person.
var ErrPersonNotFound = errors.New("person not found")

// DefaultReplyLatencyMinutes stands in for reply latency, which no
// interaction records.
const DefaultReplyLatencyMinutes = 60

// noContactRecencyDays is the recency used for a person never contacted.
const noContactRecencyDays = 365

// reportHistory bounds how many interactions a person report reads.
const reportHistory = 500

// Source is the read side of a store, as seen by the engine.
type Source interface {
	ListPeople(ctx context.Context, ownerID string) ([]RawPerson, error)
	ListInteractionsSince(ctx context.Context, ownerID string, since time.Time) ([]RawInteraction, error)
	GetPerson(ctx context.Context, ownerID, personID string) (*RawPerson, error)
	ListPersonInteractions(ctx context.Context, ownerID, personID string, limit int) ([]RawInteraction, error)
}

// Engine computes the derived views. It keeps no state between calls: each
// call fetches a fresh snapshot and runs it through the pure functions.
type Engine struct {
	src          Source
	log          zerolog.Logger
	now          func() time.Time
	replyLatency float64
}

// New creates a new Engine reading from src.
func New(src Source, log zerolog.Logger) *Engine {
	return &Engine{
		src:          src,
		log:          log.With().Str("component", "engine").Logger(),
		now:          time.Now,
		replyLatency: DefaultReplyLatencyMinutes,
	}
}

// SetClock overrides the time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// SetReplyLatency sets the reply latency fed to RelationshipScore.
func (e *Engine) SetReplyLatency(minutes float64) {
	if minutes > 0 {
		e.replyLatency = minutes
	}
}

// RadarView is the 60-day radar page.
type RadarView struct {
	Since    time.Time  `json:"since"`
	Metrics  []Metric   `json:"metrics"`
	Top      []Metric   `json:"top"`
	Chart    []ChartRow `json:"chart"`
	Rejected int        `json:"rejected"`
}

// IdeasView is the 90-day ideas page.
type IdeasView struct {
	Since    time.Time `json:"since"`
	Ideas    []Idea    `json:"ideas"`
	Rejected int       `json:"rejected"`
}

// Signals are the inputs derived for one person's report.
type Signals struct {
	RecencyDays         float64 `json:"recency_days"`
	Freq30              int     `json:"freq30"`
	ReplyLatencyMinutes float64 `json:"reply_latency_minutes"`
	MoodAvg             float64 `json:"mood_avg"`
	LastMood            *int    `json:"last_mood"`
	RoutineDue          bool    `json:"routine_due"`
}

// Report is the per-person score and suggestion list.
type Report struct {
	Person      Person       `json:"person"`
	Score       int          `json:"score"`
	Signals     Signals      `json:"signals"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Radar builds the radar view for ownerID.
func (e *Engine) Radar(ctx context.Context, ownerID string) (*RadarView, error) {
	now := e.now().UTC()
	since := now.Add(-RadarWindow)

	people, ixs, rejected, err := e.snapshot(ctx, ownerID, since)
	if err != nil {
		return nil, err
	}

	m := BuildMetrics(people, ixs, now)
	top := TopRadar(m, RadarTopN)
	metrics.ViewsComputed.WithLabelValues("radar").Inc()

	return &RadarView{
		Since:    since,
		Metrics:  m,
		Top:      top,
		Chart:    ChartRows(top),
		Rejected: rejected,
	}, nil
}

// Ideas builds the ideas view for ownerID.
func (e *Engine) Ideas(ctx context.Context, ownerID string) (*IdeasView, error) {
	now := e.now().UTC()
	since := now.Add(-IdeasWindow)

	people, ixs, rejected, err := e.snapshot(ctx, ownerID, since)
	if err != nil {
		return nil, err
	}

	metrics.ViewsComputed.WithLabelValues("ideas").Inc()
	return &IdeasView{
		Since:    since,
		Ideas:    BuildIdeas(people, ixs, now),
		Rejected: rejected,
	}, nil
}

// PersonReport scores one person and generates their suggestion cards.
func (e *Engine) PersonReport(ctx context.Context, ownerID, personID string) (*Report, error) {
	now := e.now().UTC()

	raw, err := e.src.GetPerson(ctx, ownerID, personID)
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	if raw == nil {
		return nil, ErrPersonNotFound
	}
	people, rej := NormalizePeople([]RawPerson{*raw})
	e.logRejected("person", rej)
	if len(people) == 0 {
		return nil, ErrPersonNotFound
	}
	p := people[0]

	rawIxs, err := e.src.ListPersonInteractions(ctx, ownerID, personID, reportHistory)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	ixs, rej := NormalizeInteractions(rawIxs)
	e.logRejected("interaction", rej)

	sig := deriveSignals(p, ixs, now)
	sig.ReplyLatencyMinutes = e.replyLatency

	metrics.ViewsComputed.WithLabelValues("report").Inc()
	return &Report{
		Person: p,
		Score: RelationshipScore(ScoreInput{
			RecencyDays:         sig.RecencyDays,
			Freq30:              sig.Freq30,
			ReplyLatencyMinutes: sig.ReplyLatencyMinutes,
			MoodAvg:             sig.MoodAvg,
		}),
		Signals: sig,
		Suggestions: GenerateSuggestions(SuggestionInput{
			PersonLabel: p.Label,
			RecencyDays: sig.RecencyDays,
			LastMood:    sig.LastMood,
			RoutineDue:  sig.RoutineDue,
		}),
	}, nil
}

// deriveSignals computes report signals from one person's interactions.
// Recency is clamped at zero so future-dated records cannot push Decay above 1.
func deriveSignals(p Person, ixs []Interaction, now time.Time) Signals {
	sig := Signals{RecencyDays: noContactRecencyDays}

	var lastIx *Interaction
	for i := range ixs {
		if lastIx == nil || ixs[i].HappenedAt.After(lastIx.HappenedAt) {
			lastIx = &ixs[i]
		}
		if now.Sub(ixs[i].HappenedAt) <= 30*day {
			sig.Freq30++
		}
	}
	if lastIx != nil {
		sig.RecencyDays = math.Max(0, daysBetween(lastIx.HappenedAt, now))
		sig.LastMood = lastIx.Mood
	}
	if mean, ok := moodMean(ixs); ok {
		sig.MoodAvg = mean
	}
	if p.RoutineDays != nil {
		sig.RoutineDue = sig.RecencyDays > float64(*p.RoutineDays)
	}
	return sig
}

func (e *Engine) snapshot(ctx context.Context, ownerID string, since time.Time) ([]Person, []Interaction, int, error) {
	rawPeople, err := e.src.ListPeople(ctx, ownerID)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("list people: %w", err)
	}
	rawIxs, err := e.src.ListInteractionsSince(ctx, ownerID, since)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("list interactions: %w", err)
	}

	people, rejP := NormalizePeople(rawPeople)
	ixs, rejI := NormalizeInteractions(rawIxs)
	e.logRejected("person", rejP)
	e.logRejected("interaction", rejI)

	return people, ixs, len(rejP) + len(rejI), nil
}

func (e *Engine) logRejected(kind string, rej []Rejection) {
	for _, r := range rej {
		metrics.RecordsRejected.WithLabelValues(kind).Inc()
		e.log.Warn().Str("record", kind).Str("id", r.ID).Str("reason", r.Reason).Msg("dropped malformed record")
	}
}
