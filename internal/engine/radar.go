package engine

import (
	"math"
	"sort"
	"time"
)

// View windows. Each call site looks back a fixed span; they are not configurable.
const (
	RadarWindow = 60 * day
	IdeasWindow = 90 * day
)

// RadarTopN is how many people the radar chart compares.
const RadarTopN = 5

// recencyHorizonDays is where linear radar recency reaches zero.
const recencyHorizonDays = 60

// neutralMood is the mood percentage used when a person has no mood data.
// Missing mood must not read as bad mood.
const neutralMood = 50

// BuildMetrics derives the radar tuple for every person, in the order of
// people. Interactions referencing ids outside people are ignored.
func BuildMetrics(people []Person, interactions []Interaction, now time.Time) []Metric {
	if len(people) == 0 {
		return []Metric{}
	}
	groups := groupByPerson(interactions)

	out := make([]Metric, 0, len(people))
	maxFreq := 1.0
	for _, p := range people {
		ixs := groups[p.ID]
		m := Metric{
			PersonID:  p.ID,
			Label:     p.Label,
			Frequency: float64(len(ixs)),
			Variety:   varietyPercent(ixs),
			MoodAvg:   moodPercent(ixs),
		}
		if last, ok := latest(ixs); ok {
			days := math.Max(0, daysBetween(last, now))
			m.Recency = math.Max(0, 100-(days/recencyHorizonDays)*100)
		}
		if m.Frequency > maxFreq {
			maxFreq = m.Frequency
		}
		out = append(out, m)
	}

	for i := range out {
		out[i].Frequency = out[i].Frequency / maxFreq * 100
	}
	return out
}

// TopRadar returns up to n metrics with the highest composite score,
// highest first. Ties keep their input order.
func TopRadar(metrics []Metric, n int) []Metric {
	ranked := make([]Metric, len(metrics))
	copy(ranked, metrics)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Composite() > ranked[j].Composite()
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// ChartRow is one axis of the radar chart: the metric name and each
// person's rounded value keyed by label.
type ChartRow struct {
	Metric string         `json:"metric"`
	Values map[string]int `json:"values"`
}

// ChartRows lays out the top metrics as four chart axes.
func ChartRows(top []Metric) []ChartRow {
	rows := []ChartRow{
		{Metric: "Frequency", Values: map[string]int{}},
		{Metric: "Recency", Values: map[string]int{}},
		{Metric: "Variety", Values: map[string]int{}},
		{Metric: "Mood", Values: map[string]int{}},
	}
	for _, m := range top {
		rows[0].Values[m.Label] = int(math.Round(m.Frequency))
		rows[1].Values[m.Label] = int(math.Round(m.Recency))
		rows[2].Values[m.Label] = int(math.Round(m.Variety))
		rows[3].Values[m.Label] = int(math.Round(m.MoodAvg))
	}
	return rows
}

func groupByPerson(interactions []Interaction) map[string][]Interaction {
	groups := make(map[string][]Interaction)
	for _, ix := range interactions {
		groups[ix.PersonID] = append(groups[ix.PersonID], ix)
	}
	return groups
}

// latest returns the most recent timestamp regardless of slice order.
func latest(ixs []Interaction) (time.Time, bool) {
	if len(ixs) == 0 {
		return time.Time{}, false
	}
	last := ixs[0].HappenedAt
	for _, ix := range ixs[1:] {
		if ix.HappenedAt.After(last) {
			last = ix.HappenedAt
		}
	}
	return last, true
}

func varietyPercent(ixs []Interaction) float64 {
	seen := make(map[Kind]struct{}, len(AllKinds))
	for _, ix := range ixs {
		seen[ix.Kind] = struct{}{}
	}
	return float64(len(seen)) / float64(len(AllKinds)) * 100
}

// moodMean returns the mean of the present mood values.
func moodMean(ixs []Interaction) (float64, bool) {
	sum, n := 0, 0
	for _, ix := range ixs {
		if ix.Mood != nil {
			sum += *ix.Mood
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

// moodPercent rescales the mean mood from [-3,3] to [0,100].
func moodPercent(ixs []Interaction) float64 {
	mean, ok := moodMean(ixs)
	if !ok {
		return neutralMood
	}
	return (mean + 3) / 6 * 100
}
