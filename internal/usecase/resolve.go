package usecase

import "github.com/fairyhunter13/softrate-ats/internal/domain"

// lookupRule is one ranked predicate used to pick the application an
// operation acts on.
type lookupRule struct {
	name  string
	match func(a domain.Application) bool
}

// resolver evaluates its rules in order. The first rule matching any
// application wins and yields its most recently created match.
type resolver []lookupRule

// resolve expects apps ordered oldest first.
func (r resolver) resolve(apps []domain.Application) (app domain.Application, rule string, ok bool) {
	for _, rl := range r {
		for i := len(apps) - 1; i >= 0; i-- {
			if rl.match(apps[i]) {
				return apps[i], rl.name, true
			}
		}
	}
	return domain.Application{}, "", false
}

func forAssessment(assessmentID string) resolver {
	return resolver{
		{name: "for_assessment", match: func(a domain.Application) bool { return a.AssessmentID == assessmentID }},
	}
}

var activeRules = resolver{
	{name: "incomplete", match: func(a domain.Application) bool { return a.Status == domain.StatusIncomplete }},
}

// disqualifyRules: the incomplete application for the assessment, then the
// latest incomplete one anywhere, then any application for the assessment.
func disqualifyRules(assessmentID string) resolver {
	return resolver{
		{name: "incomplete_for_assessment", match: func(a domain.Application) bool {
			return assessmentID != "" && a.AssessmentID == assessmentID && a.Status == domain.StatusIncomplete
		}},
		{name: "latest_incomplete", match: func(a domain.Application) bool { return a.Status == domain.StatusIncomplete }},
		{name: "any_for_assessment", match: func(a domain.Application) bool {
			return assessmentID != "" && a.AssessmentID == assessmentID
		}},
	}
}

// restartRules: the incomplete application, then the latest one ended by
// rejection or disqualification.
var restartRules = resolver{
	{name: "incomplete", match: func(a domain.Application) bool { return a.Status == domain.StatusIncomplete }},
	{name: "latest_terminated", match: func(a domain.Application) bool {
		return a.Status == domain.StatusRejected || a.Status == domain.StatusDisqualified
	}},
}
