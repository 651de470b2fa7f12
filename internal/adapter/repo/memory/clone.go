package memory

import "github.com/fairyhunter13/softrate-ats/internal/domain"

func cloneAssessment(a domain.Assessment) domain.Assessment {
	a.SuggestedSkills = append([]string(nil), a.SuggestedSkills...)
	qs := make([]domain.Question, len(a.Questions))
	for i, q := range a.Questions {
		q.Keywords = append([]string(nil), q.Keywords...)
		q.Options = append([]string(nil), q.Options...)
		qs[i] = q
	}
	a.Questions = qs
	return a
}

func cloneApplication(a domain.Application) domain.Application {
	if a.ResumeText != nil {
		text := *a.ResumeText
		a.ResumeText = &text
	}
	a.StageScores = cloneScores(a.StageScores)
	return a
}

func cloneScores(s domain.StageScores) domain.StageScores {
	if s.Resume != nil {
		r := *s.Resume
		s.Resume = &r
	}
	if s.Stage2 != nil {
		r := *s.Stage2
		s.Stage2 = &r
	}
	if s.Stage3 != nil {
		r := *s.Stage3
		s.Stage3 = &r
	}
	if s.JD != nil {
		r := *s.JD
		r.QuestionScores = append([]int(nil), r.QuestionScores...)
		s.JD = &r
	}
	if s.Final != nil {
		r := *s.Final
		s.Final = &r
	}
	return s
}
