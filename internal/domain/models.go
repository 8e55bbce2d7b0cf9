package domain

import (
	"fmt"
	"time"
)

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"` // two or more
	CorrectAnswer string   `json:"correctAnswer"`
}

// Bank is the fixed, ordered question set for a deployment. Immutable after load.
type Bank []Question

// AnswerSet maps question IDs to the option the user selected.
// Re-selecting for the same ID overwrites the prior choice.
type AnswerSet map[string]string

// Phase describes where a quiz attempt is in its lifecycle.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseExpired   Phase = "expired"
)

// Terminal reports whether the attempt can no longer change.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseExpired
}

// Tier is the coarse performance label derived from a score.
type Tier string

const (
	TierHigh   Tier = "High"
	TierMedium Tier = "Medium"
	TierLow    Tier = "Low"
)

// QuestionAnswer is one question's outcome, denormalized into an attempt record.
type QuestionAnswer struct {
	QuestionID    string `json:"questionId"`
	QuestionText  string `json:"questionText"`
	UserAnswer    string `json:"userAnswer"` // empty when unanswered
	CorrectAnswer string `json:"correctAnswer"`
}

// AttemptRecord is one completed or expired run of the quiz by one user.
// Answers follow bank order and carry a copy of the question data, so
// historical rows stay readable even after the bank changes.
type AttemptRecord struct {
	User      string           `json:"user"`
	Timestamp time.Time        `json:"timestamp"`
	Score     int              `json:"score"`
	TimeUsed  string           `json:"timeUsed"` // "M:SS"
	Tier      Tier             `json:"tier"`
	Answers   []QuestionAnswer `json:"answers"`
}

// FormatTimeUsed renders an elapsed duration as "M:SS" for attempt records.
func FormatTimeUsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
