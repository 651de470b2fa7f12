package ai

import (
	"context"
	"strings"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

// KeywordOracle grades answers without a provider: each answer earns up to
// 10 points for the share of its question's keywords it mentions.
type KeywordOracle struct{}

var _ domain.Oracle = KeywordOracle{}

// Evaluate implements domain.Oracle.
func (KeywordOracle) Evaluate(_ context.Context, questions []domain.Question, answers []string) (domain.Evaluation, error) {
	ev := domain.Evaluation{QuestionScores: make([]int, len(questions))}
	if len(questions) == 0 {
		ev.OverallFeedback = "no questions to grade"
		return ev, nil
	}
	total := 0
	for i, q := range questions {
		ans := ""
		if i < len(answers) {
			ans = strings.ToLower(answers[i])
		}
		ev.QuestionScores[i] = keywordScore(q, ans)
		total += ev.QuestionScores[i]
	}
	ev.FinalScore = (total*10 + len(questions)/2) / len(questions)
	switch {
	case ev.FinalScore >= 70:
		ev.OverallFeedback = "answers cover most expected concepts"
	case ev.FinalScore >= 40:
		ev.OverallFeedback = "answers cover some expected concepts"
	default:
		ev.OverallFeedback = "answers miss most expected concepts"
	}
	return ev, nil
}

func keywordScore(q domain.Question, answer string) int {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return 0
	}
	if len(q.Keywords) == 0 {
		return 5
	}
	hits := 0
	for _, k := range q.Keywords {
		if strings.Contains(answer, strings.ToLower(k)) {
			hits++
		}
	}
	return (hits*10 + len(q.Keywords)/2) / len(q.Keywords)
}
