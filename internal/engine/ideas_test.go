package engine

import (
	"fmt"
	"testing"
	"time"
)

func TestBuildIdeasOldestFirst(t *testing.T) {
	people := []Person{
		{ID: "a", Label: "Alice"},
		{ID: "b", Label: "Bob"},
		{ID: "c", Label: "Carol"},
	}
	ixs := []Interaction{
		ix("a", KindChat, daysAgo(1), nil),
		ix("b", KindChat, daysAgo(40), nil),
		ix("b", KindChat, daysAgo(60), nil),
	}

	ideas := BuildIdeas(people, ixs, testNow)
	if len(ideas) != 3 {
		t.Fatalf("got %d ideas, want 3", len(ideas))
	}
	// never contacted sorts as the epoch, ahead of everyone
	want := []string{"c", "b", "a"}
	for i, idea := range ideas {
		if idea.PersonID != want[i] {
			t.Errorf("ideas[%d] = %s, want %s", i, idea.PersonID, want[i])
		}
	}
	if ideas[0].LastAt != nil {
		t.Errorf("Carol LastAt = %v, want nil", ideas[0].LastAt)
	}
	if ideas[1].LastAt == nil || !ideas[1].LastAt.Equal(daysAgo(40)) {
		t.Errorf("Bob LastAt = %v, want %v", ideas[1].LastAt, daysAgo(40))
	}
}

func TestBuildIdeasItems(t *testing.T) {
	tests := []struct {
		name string
		ixs  []Interaction
		want []string
	}{
		{
			name: "never contacted",
			want: []string{ideaReachOut},
		},
		{
			name: "recent and fine",
			ixs:  []Interaction{ix("p", KindMeet, daysAgo(2), intPtr(2))},
			want: []string{ideaKeepGoing},
		},
		{
			name: "exactly 21 days",
			ixs:  []Interaction{ix("p", KindMeet, daysAgo(21), nil)},
			want: []string{ideaReachOut},
		},
		{
			name: "low mood",
			ixs:  []Interaction{ix("p", KindMeet, daysAgo(2), intPtr(-1))},
			want: []string{ideaEncourage},
		},
		{
			name: "online only",
			ixs: []Interaction{
				ix("p", KindChat, daysAgo(1), nil),
				ix("p", KindChat, daysAgo(2), nil),
				ix("p", KindCall, daysAgo(3), nil),
				ix("p", KindNote, daysAgo(4), nil),
			},
			want: []string{ideaMeetInPerson},
		},
		{
			name: "online but too few to judge",
			ixs: []Interaction{
				ix("p", KindChat, daysAgo(1), nil),
				ix("p", KindChat, daysAgo(2), nil),
				ix("p", KindCall, daysAgo(3), nil),
			},
			want: []string{ideaKeepGoing},
		},
		{
			name: "everything at once",
			ixs: []Interaction{
				ix("p", KindChat, daysAgo(30), intPtr(-3)),
				ix("p", KindChat, daysAgo(31), nil),
				ix("p", KindCall, daysAgo(32), nil),
				ix("p", KindNote, daysAgo(33), nil),
			},
			want: []string{ideaReachOut, ideaEncourage, ideaMeetInPerson},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ideas := BuildIdeas([]Person{{ID: "p", Label: "P"}}, tt.ixs, testNow)
			if len(ideas) != 1 {
				t.Fatalf("got %d ideas, want 1", len(ideas))
			}
			got := ideas[0].Items
			if len(got) != len(tt.want) {
				t.Fatalf("items = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("items[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildIdeasCap(t *testing.T) {
	var people []Person
	var ixs []Interaction
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("p%02d", i)
		people = append(people, Person{ID: id, Label: id})
		// p00 is the most recent, p24 the most neglected
		ixs = append(ixs, ix(id, KindChat, daysAgo(float64(i+1)), nil))
	}

	ideas := BuildIdeas(people, ixs, testNow)
	if len(ideas) != IdeasCap {
		t.Fatalf("got %d ideas, want %d", len(ideas), IdeasCap)
	}
	if ideas[0].PersonID != "p24" {
		t.Errorf("first = %s, want p24", ideas[0].PersonID)
	}
	if ideas[IdeasCap-1].PersonID != "p05" {
		t.Errorf("last = %s, want p05", ideas[IdeasCap-1].PersonID)
	}
}

func TestBuildIdeasUnknownPerson(t *testing.T) {
	people := []Person{{ID: "a", Label: "Alice"}}
	ixs := []Interaction{
		ix("a", KindChat, daysAgo(1), nil),
		ix("ghost", KindChat, daysAgo(5), nil),
	}
	ideas := BuildIdeas(people, ixs, testNow)
	if len(ideas) != 2 {
		t.Fatalf("got %d ideas, want 2", len(ideas))
	}
	if ideas[0].PersonID != "ghost" || ideas[0].Label != "ghost" {
		t.Errorf("unknown card = %+v, want labeled by id", ideas[0])
	}
}

func TestBuildIdeasTiesKeepPeopleOrder(t *testing.T) {
	people := []Person{{ID: "x", Label: "X"}, {ID: "y", Label: "Y"}, {ID: "z", Label: "Z"}}
	at := daysAgo(3)
	ixs := []Interaction{ix("z", KindChat, at, nil), ix("x", KindChat, at, nil)}

	ideas := BuildIdeas(people, ixs, testNow)
	got := []string{ideas[0].PersonID, ideas[1].PersonID, ideas[2].PersonID}
	if got[0] != "y" || got[1] != "x" || got[2] != "z" {
		t.Errorf("order = %v, want [y x z]", got)
	}
}

func TestBuildIdeasEmpty(t *testing.T) {
	if got := BuildIdeas(nil, nil, time.Now()); len(got) != 0 {
		t.Errorf("BuildIdeas(nil, nil) = %v, want empty", got)
	}
}
