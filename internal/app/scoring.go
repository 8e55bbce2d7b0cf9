package app

import "timed-quiz-service/internal/domain"

// Thresholds holds the tier cutoffs. The defaults come from the original
// deployment and are deliberately independent of bank size, so High can be
// unreachable for small banks. They are injected rather than hardcoded so a
// deployment can pick cutoffs that fit its bank.
type Thresholds struct {
	HighMin   int // score >= HighMin  -> High
	MediumMin int // score >= MediumMin -> Medium, else Low
}

// DefaultThresholds returns the historical 40/25 cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{HighMin: 40, MediumMin: 25}
}

// Tier maps a score onto a performance tier.
func (t Thresholds) Tier(score int) domain.Tier {
	switch {
	case score >= t.HighMin:
		return domain.TierHigh
	case score >= t.MediumMin:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}

// Score counts exact matches between the answer set and the bank's correct
// answers. Unanswered questions never match. Pure and deterministic.
func Score(answers domain.AnswerSet, bank domain.Bank) int {
	score := 0
	for _, q := range bank {
		if selected, ok := answers[q.ID]; ok && selected == q.CorrectAnswer {
			score++
		}
	}
	return score
}

// Grade scores an answer set and derives its tier in one step.
func Grade(answers domain.AnswerSet, bank domain.Bank, th Thresholds) (int, domain.Tier) {
	score := Score(answers, bank)
	return score, th.Tier(score)
}
