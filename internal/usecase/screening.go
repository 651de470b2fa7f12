package usecase

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

var (
	resumeSections = []string{"experience", "education", "skills", "projects"}
	resumeKeywords = []string{"python", "javascript", "react", "sql", "aws", "docker", "communication", "leadership"}
)

// ShortlistThreshold is the lowest heuristic screening score that shortlists.
const ShortlistThreshold = 50

// KeywordScreen is the deterministic resume screener. It rewards standard
// resume sections and common skill keywords.
func KeywordScreen(resumeText string) domain.ScreenResult {
	text := strings.ToLower(resumeText)
	score := 0
	var feedback []string

	found := 0
	for _, s := range resumeSections {
		if strings.Contains(text, s) {
			found++
		}
	}
	if found >= 3 {
		score += 60
		feedback = append(feedback, "Good structure: Found most standard sections.")
	} else {
		score += 30
		feedback = append(feedback, "Weak structure: Missing key sections like Projects or Experience.")
	}

	var skills []string
	for _, k := range resumeKeywords {
		if strings.Contains(text, k) {
			skills = append(skills, k)
		}
	}
	switch {
	case len(skills) >= 3:
		score += 30
		feedback = append(feedback, fmt.Sprintf("Strong Skills: Detected %s...", strings.Join(skills[:3], ", ")))
	case len(skills) > 0:
		score += 15
		feedback = append(feedback, fmt.Sprintf("Basic Skills: Detected %s.", strings.Join(skills, ", ")))
	default:
		feedback = append(feedback, "Low Skill Match: No major technical keywords found.")
	}

	score = min(score+10, 100)
	status := domain.ScreenRejected
	if score >= ShortlistThreshold {
		status = domain.ScreenShortlisted
	}
	return domain.ScreenResult{Score: score, Feedback: strings.Join(feedback, " "), Status: status}
}
