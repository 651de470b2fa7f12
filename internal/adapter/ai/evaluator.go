package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

const (
	evaluateMaxTokens = 800
	screenMaxTokens   = 400
	generateMaxTokens = 1500
)

// Evaluator implements the oracle, screener and question generator ports on
// top of a ChatClient. Replies are validated; anything off-schema is an
// ErrSchemaInvalid so the pipeline falls back.
type Evaluator struct {
	Chat            ChatClient
	Model           string
	MaxPromptTokens int
	Counter         *tokencount.Counter
}

// NewEvaluator wires an Evaluator. maxPromptTokens bounds free text sent to
// the provider; zero disables trimming.
func NewEvaluator(chat ChatClient, model string, maxPromptTokens int) *Evaluator {
	return &Evaluator{Chat: chat, Model: model, MaxPromptTokens: maxPromptTokens, Counter: tokencount.Default}
}

var (
	_ domain.Oracle            = (*Evaluator)(nil)
	_ domain.Screener          = (*Evaluator)(nil)
	_ domain.QuestionGenerator = (*Evaluator)(nil)
)

// Evaluate grades answers question by question.
func (e *Evaluator) Evaluate(ctx context.Context, questions []domain.Question, answers []string) (domain.Evaluation, error) {
	var b strings.Builder
	for i, q := range questions {
		ans := ""
		if i < len(answers) {
			ans = answers[i]
		}
		fmt.Fprintf(&b, "Question %d (%s, %s): %s\n", i+1, q.Type, q.Difficulty, q.Text)
		if len(q.Keywords) > 0 {
			fmt.Fprintf(&b, "Expected keywords: %s\n", strings.Join(q.Keywords, ", "))
		}
		fmt.Fprintf(&b, "Answer %d:\n%s\n\n", i+1, e.trim(ctx, ans, len(questions)))
	}
	raw, err := e.chat(ctx, oracleSystemPrompt, b.String(), evaluateMaxTokens)
	if err != nil {
		return domain.Evaluation{}, err
	}
	scores := gjson.Get(raw, "question_scores")
	final := gjson.Get(raw, "final_score")
	if !scores.IsArray() || !isWholeNumber(final) {
		return domain.Evaluation{}, fmt.Errorf("%w: evaluation missing question_scores or final_score", domain.ErrSchemaInvalid)
	}
	items := scores.Array()
	if len(items) != len(questions) {
		return domain.Evaluation{}, fmt.Errorf("%w: %d question scores for %d questions", domain.ErrSchemaInvalid, len(items), len(questions))
	}
	ev := domain.Evaluation{
		QuestionScores:  make([]int, len(items)),
		FinalScore:      int(final.Int()),
		OverallFeedback: strings.TrimSpace(gjson.Get(raw, "overall_feedback").String()),
	}
	for i, it := range items {
		if !isWholeNumber(it) || it.Int() < 0 || it.Int() > 10 {
			return domain.Evaluation{}, fmt.Errorf("%w: question score %d out of range", domain.ErrSchemaInvalid, i+1)
		}
		ev.QuestionScores[i] = int(it.Int())
	}
	if ev.FinalScore < 0 || ev.FinalScore > 100 {
		return domain.Evaluation{}, fmt.Errorf("%w: final_score %d out of range", domain.ErrSchemaInvalid, ev.FinalScore)
	}
	return ev, nil
}

// Screen scores a resume.
func (e *Evaluator) Screen(ctx context.Context, resumeText string) (domain.ScreenResult, error) {
	raw, err := e.chat(ctx, screenerSystemPrompt, "Resume:\n"+e.trim(ctx, resumeText, 1), screenMaxTokens)
	if err != nil {
		return domain.ScreenResult{}, err
	}
	score := gjson.Get(raw, "score")
	status := gjson.Get(raw, "status").String()
	if !isWholeNumber(score) || score.Int() < 0 || score.Int() > 100 {
		return domain.ScreenResult{}, fmt.Errorf("%w: screening score missing or out of range", domain.ErrSchemaInvalid)
	}
	if status != domain.ScreenShortlisted && status != domain.ScreenRejected {
		return domain.ScreenResult{}, fmt.Errorf("%w: screening status %q", domain.ErrSchemaInvalid, status)
	}
	return domain.ScreenResult{
		Score:    int(score.Int()),
		Status:   status,
		Feedback: strings.TrimSpace(gjson.Get(raw, "feedback").String()),
	}, nil
}

// FromJobDescription drafts skills and questions for a posting.
func (e *Evaluator) FromJobDescription(ctx context.Context, roleTitle, jdText string) (domain.GeneratedAssessment, error) {
	user := "Role: " + roleTitle + "\n\nJob description:\n" + e.trim(ctx, jdText, 1)
	raw, err := e.chat(ctx, jdSystemPrompt, user, generateMaxTokens)
	if err != nil {
		return domain.GeneratedAssessment{}, err
	}
	if !gjson.Get(raw, "questions").IsArray() {
		return domain.GeneratedAssessment{}, fmt.Errorf("%w: generated assessment has no questions array", domain.ErrSchemaInvalid)
	}
	var out domain.GeneratedAssessment
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return domain.GeneratedAssessment{}, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	return out, nil
}

// FromResume drafts questions about the candidate's own resume.
func (e *Evaluator) FromResume(ctx context.Context, resumeText string) ([]domain.Question, error) {
	raw, err := e.chat(ctx, resumeQuestionsSystemPrompt, "Resume:\n"+e.trim(ctx, resumeText, 1), generateMaxTokens)
	if err != nil {
		return nil, err
	}
	qs := gjson.Get(raw, "questions")
	if !qs.IsArray() {
		return nil, fmt.Errorf("%w: reply has no questions array", domain.ErrSchemaInvalid)
	}
	var out []domain.Question
	if err := json.Unmarshal([]byte(qs.Raw), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	return out, nil
}

func (e *Evaluator) chat(ctx context.Context, system, user string, maxTokens int) (string, error) {
	reply, err := e.Chat.ChatJSON(ctx, system, user, maxTokens)
	if err != nil {
		return "", err
	}
	return CleanJSON(reply)
}

// trim cuts text to its share of the prompt budget.
func (e *Evaluator) trim(ctx context.Context, text string, parts int) string {
	if e.MaxPromptTokens <= 0 || e.Counter == nil {
		return text
	}
	if parts < 1 {
		parts = 1
	}
	out, cut := e.Counter.Truncate(text, e.Model, e.MaxPromptTokens/parts)
	if cut {
		slog.DebugContext(ctx, "prompt text truncated", slog.String("model", e.Model), slog.Int("budget", e.MaxPromptTokens/parts))
	}
	return out
}

func isWholeNumber(r gjson.Result) bool {
	return r.Type == gjson.Number && r.Num == float64(int64(r.Num))
}
