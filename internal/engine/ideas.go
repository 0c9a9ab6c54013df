package engine

import (
	"math"
	"sort"
	"time"
)

// IdeasCap bounds the ideas view.
const IdeasCap = 20

// Ideas rule thresholds.
const (
	ideasLowMoodPercent = 35
	ideasMinMeetRatio   = 0.15
	ideasMinForRatio    = 4
	noContactDays       = 999
)

// Canned ideas items.
const (
	ideaReachOut     = "최근 소통이 뜸했어요. 가벼운 안부 인사(톡/DM) 한 번 보내보기 👋"
	ideaEncourage    = "요즘 컨디션이 안 좋아 보여요. 관심사/격려 위주로 짧게 공감해주기 💬"
	ideaMeetInPerson = "온라인 위주였어요. 주말에 30분 산책/커피 같은 가벼운 만남 제안 ☕"
	ideaKeepGoing    = "좋은 흐름이에요! 가볍게 근황 공유나 사진 한 장 건네보기 📸"
)

type ideaGroup struct {
	id    string
	label string
	ixs   []Interaction
}

// BuildIdeas produces one card per person, most neglected first, capped at
// IdeasCap. People come first in the given order; interactions for unknown
// ids form extra cards labeled by the id. A person with no interactions sorts
// as if last contacted at the Unix epoch.
func BuildIdeas(people []Person, interactions []Interaction, now time.Time) []Idea {
	var groups []*ideaGroup
	byID := make(map[string]*ideaGroup, len(people))
	for _, p := range people {
		g := &ideaGroup{id: p.ID, label: p.Label}
		byID[p.ID] = g
		groups = append(groups, g)
	}
	for _, ix := range interactions {
		g, ok := byID[ix.PersonID]
		if !ok {
			g = &ideaGroup{id: ix.PersonID, label: ix.PersonID}
			byID[ix.PersonID] = g
			groups = append(groups, g)
		}
		g.ixs = append(g.ixs, ix)
	}

	epoch := time.Unix(0, 0)
	type ranked struct {
		idea Idea
		last time.Time
	}
	res := make([]ranked, 0, len(groups))
	for _, g := range groups {
		r := ranked{
			idea: Idea{PersonID: g.id, Label: g.label, Items: ideaItems(g.ixs, now)},
			last: epoch,
		}
		if last, ok := latest(g.ixs); ok {
			r.last = last
			lastAt := last
			r.idea.LastAt = &lastAt
		}
		res = append(res, r)
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].last.Before(res[j].last)
	})
	if len(res) > IdeasCap {
		res = res[:IdeasCap]
	}

	out := make([]Idea, len(res))
	for i, r := range res {
		out[i] = r.idea
	}
	return out
}

// ideaItems applies the needs-attention rules to one person's interactions.
// At least one item is always returned.
func ideaItems(ixs []Interaction, now time.Time) []string {
	days := noContactDays
	if last, ok := latest(ixs); ok {
		days = int(math.Round(daysBetween(last, now)))
	}

	meets := 0
	for _, ix := range ixs {
		if ix.Kind == KindMeet {
			meets++
		}
	}
	meetRatio := 0.0
	if len(ixs) > 0 {
		meetRatio = float64(meets) / float64(len(ixs))
	}

	var items []string
	if days >= outreachAfterDays {
		items = append(items, ideaReachOut)
	}
	if moodPercent(ixs) <= ideasLowMoodPercent {
		items = append(items, ideaEncourage)
	}
	if meetRatio < ideasMinMeetRatio && len(ixs) >= ideasMinForRatio {
		items = append(items, ideaMeetInPerson)
	}
	if len(items) == 0 {
		items = append(items, ideaKeepGoing)
	}
	return items
}
