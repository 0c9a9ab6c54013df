package engine

import "fmt"

// Thresholds shared by the suggestion and ideas rules.
const (
	outreachAfterDays = 21
	lowMoodThreshold  = -2
)

// SuggestionInput holds the derived signals for one person.
type SuggestionInput struct {
	PersonLabel string
	RecencyDays float64
	LastMood    *int // nil means no mood signal, which is not the same as 0
	RoutineDue  bool
}

// GenerateSuggestions maps signals to an ordered list of cards. Every
// matching rule contributes one card, in rule order. The result is never empty.
func GenerateSuggestions(in SuggestionInput) []Suggestion {
	var out []Suggestion

	if in.RoutineDue {
		out = append(out, Suggestion{
			Title: "루틴 리마인드",
			Body:  fmt.Sprintf("%s님과 약속된 루틴이 지났어요. 이번 주에 15분 통화 어떨까요?", in.PersonLabel),
		})
	}
	if in.RecencyDays > outreachAfterDays {
		out = append(out, Suggestion{
			Title: "가벼운 터치",
			Body:  "최근 연락이 뜸했어요. 지난번 웃겼던 사진 1장을 보내보는 건 어때요?",
		})
	}
	if in.LastMood != nil && *in.LastMood <= lowMoodThreshold {
		out = append(out, Suggestion{
			Title: "회복의 첫걸음",
			Body:  "무거운 대화 대신, 공통 추억을 떠올릴 수 있는 짧은 안부로 시작해봐요.",
		})
	}
	if len(out) == 0 {
		out = append(out, Suggestion{
			Title: "오늘의 한 걸음",
			Body:  "오늘 하루 어땠는지 3줄로 나눠보세요 🙂",
		})
	}
	return out
}
