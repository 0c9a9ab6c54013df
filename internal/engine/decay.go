package engine

import "math"

// DefaultLambda is the decay rate used for recency: e^(-0.08*days) halves
// roughly every 8.7 days.
const DefaultLambda = 0.08

// Score weights. They sum to 1.
const (
	weightRecency = 0.35
	weightFreq    = 0.30
	weightLatency = 0.15
	weightMood    = 0.20
)

// Decay converts elapsed days into a recency weight in (0,1].
//
// days must be non-negative. Negative input is not rejected and yields values
// above 1; callers clamp before calling.
func Decay(days, lambda float64) float64 {
	return math.Exp(-lambda * days)
}

// ScoreInput carries the four signals of a relationship score.
type ScoreInput struct {
	RecencyDays         float64 // days since last contact, >= 0
	Freq30              int     // interactions in the last 30 days
	ReplyLatencyMinutes float64 // typical reply latency
	MoodAvg             float64 // mean mood in [-3,3]
}

// RelationshipScore combines recency, frequency, reply latency and mood into
// an integer health score in [0,100]. Frequency saturates through tanh, so
// interactions past ~25 a month add little.
func RelationshipScore(in ScoreInput) int {
	r := Decay(in.RecencyDays, DefaultLambda)
	f := math.Tanh(float64(in.Freq30) / 10)
	rl := 1 / (1 + math.Log(1+math.Max(in.ReplyLatencyMinutes, 1)))
	v := (in.MoodAvg + 3) / 6

	return int(math.Round((r*weightRecency + f*weightFreq + rl*weightLatency + v*weightMood) * 100))
}
