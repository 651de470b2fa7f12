package usecase

import (
	"time"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

// Stage weights in percent of the final score.
const (
	WeightResume          = 20
	WeightPsychometric    = 20
	WeightResumeTechnical = 30
	WeightJDTest          = 30
)

// ScoringPolicy holds the tunable parts of final scoring.
type ScoringPolicy struct {
	// QualifyThreshold is the lowest final score that qualifies.
	QualifyThreshold int
	// OracleFallbackScore replaces the JD-test score when the oracle fails.
	OracleFallbackScore int
	// OracleTimeout bounds a single oracle evaluation.
	OracleTimeout time.Duration
}

// DefaultScoringPolicy returns the production defaults.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{QualifyThreshold: 70, OracleFallbackScore: 50, OracleTimeout: 90 * time.Second}
}

// ComputeFinal builds the weighted breakdown from the recorded stage scores
// and the JD-test score. Missing stage scores count as 0. The weighted sum is
// rounded half up.
func ComputeFinal(scores domain.StageScores, jdScore, threshold int) domain.FinalBreakdown {
	b := domain.FinalBreakdown{
		Resume:          domain.WeightedScore{Score: clampScore(scores.ResumeScore()), Weight: WeightResume},
		Psychometric:    domain.WeightedScore{Score: clampScore(scores.StageScore(domain.StagePsychometric)), Weight: WeightPsychometric},
		ResumeTechnical: domain.WeightedScore{Score: clampScore(scores.StageScore(domain.StageResumeTechnical)), Weight: WeightResumeTechnical},
		JDTest:          domain.WeightedScore{Score: clampScore(jdScore), Weight: WeightJDTest},
		Threshold:       threshold,
	}
	b.FinalScore = weightedRound(b.Resume, b.Psychometric, b.ResumeTechnical, b.JDTest)
	b.Status = domain.StatusRejected
	if b.FinalScore >= threshold {
		b.Status = domain.StatusQualified
	}
	return b
}

// weightedRound computes round(sum(score*weight)/100) half up in integer
// arithmetic, so .5 boundaries are exact.
func weightedRound(parts ...domain.WeightedScore) int {
	sum := 0
	for _, p := range parts {
		sum += p.Score * p.Weight
	}
	return (sum + 50) / 100
}

func clampScore(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
