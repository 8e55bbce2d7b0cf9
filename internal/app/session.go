package app

import (
	"fmt"
	"sync"
	"time"

	"timed-quiz-service/internal/domain"
)

// Session is the in-memory state machine for one timed attempt. It owns the
// question cursor, the answer set being built and the timer, and is safe for
// use from a connection goroutine plus a tick loop. All transitions are
// synchronous; the timer is advanced only through tick.
type Session struct {
	key        string
	user       string
	bank       domain.Bank
	duration   time.Duration
	thresholds Thresholds
	now        func() time.Time

	mu        sync.Mutex
	phase     domain.Phase
	startedAt time.Time
	current   int
	answers   domain.AnswerSet
	final     *domain.AttemptRecord
}

// SessionView is a render-ready snapshot of a session for transports.
type SessionView struct {
	Key          string        `json:"key"`
	User         string        `json:"user"`
	Phase        domain.Phase  `json:"phase"`
	Index        int           `json:"index"`
	Total        int           `json:"total"`
	QuestionID   string        `json:"questionId"`
	QuestionText string        `json:"questionText"`
	Options      []string      `json:"options"`
	Selected     string        `json:"selected"` // empty when unanswered
	Answered     int           `json:"answered"`
	Remaining    time.Duration `json:"-"`
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(key, user string, bank domain.Bank, duration time.Duration, th Thresholds) *Session {
	return newSessionWithClock(key, user, bank, duration, th, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(key, user string, bank domain.Bank, duration time.Duration, th Thresholds, now func() time.Time) *Session {
	return newSessionWithClock(key, user, bank, duration, th, now)
}

// newSessionWithClock arms the timer immediately: construction is the
// idle -> running transition.
func newSessionWithClock(key, user string, bank domain.Bank, duration time.Duration, th Thresholds, now func() time.Time) *Session {
	return &Session{
		key:        key,
		user:       user,
		bank:       bank,
		duration:   duration,
		thresholds: th,
		now:        now,
		phase:      domain.PhaseRunning,
		startedAt:  now(),
		answers:    make(domain.AnswerSet),
	}
}

// Key returns the session key the repository stores it under.
func (s *Session) Key() string { return s.key }

func (s *Session) selectAnswer(index int, option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseRunning {
		return domain.ErrNotRunning
	}
	if index < 0 || index >= len(s.bank) {
		return fmt.Errorf("question index %d out of range: %w", index, domain.ErrOptionNotFound)
	}
	q := s.bank[index]
	for _, opt := range q.Options {
		if opt == option {
			s.answers[q.ID] = option
			return nil
		}
	}
	return domain.ErrOptionNotFound
}

// advance moves the cursor forward, clamped to the last question. The current
// question must have a committed answer first (commit-before-advance).
func (s *Session) advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseRunning {
		return domain.ErrNotRunning
	}
	if !s.currentAnsweredLocked() {
		return domain.ErrAnswerRequired
	}
	if s.current < len(s.bank)-1 {
		s.current++
	}
	return nil
}

// currentAnsweredLocked reports whether the question under the cursor has a
// committed answer. True for an empty bank so the gates never index past it.
// Caller holds s.mu.
func (s *Session) currentAnsweredLocked() bool {
	if s.current < 0 || s.current >= len(s.bank) {
		return true
	}
	_, ok := s.answers[s.bank[s.current].ID]
	return ok
}

// retreat moves the cursor back, clamped to the first question.
func (s *Session) retreat() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseRunning {
		return domain.ErrNotRunning
	}
	if s.current > 0 {
		s.current--
	}
	return nil
}

// tick re-evaluates the timer against now. On the first tick at or past the
// deadline it transitions to expired and returns the finalized record exactly
// once; the caller is responsible for persisting it. Later ticks return nil.
func (s *Session) tick(now time.Time) (remaining time.Duration, expired *domain.AttemptRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseRunning {
		return 0, nil
	}
	remaining = s.duration - now.Sub(s.startedAt)
	if remaining > 0 {
		return remaining, nil
	}

	s.phase = domain.PhaseExpired
	// Expired attempts always report the full configured duration.
	record := s.buildRecordLocked(domain.FormatTimeUsed(s.duration))
	s.final = &record
	return 0, &record
}

// submit completes the attempt with whatever has been committed. The current
// question must be answered first, same gate as advance.
func (s *Session) submit() (domain.AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseRunning {
		return domain.AttemptRecord{}, domain.ErrNotRunning
	}
	if !s.currentAnsweredLocked() {
		return domain.AttemptRecord{}, domain.ErrAnswerRequired
	}

	s.phase = domain.PhaseCompleted
	elapsed := s.now().Sub(s.startedAt)
	if elapsed > s.duration {
		elapsed = s.duration
	}
	record := s.buildRecordLocked(domain.FormatTimeUsed(elapsed))
	s.final = &record
	return record, nil
}

// buildRecordLocked scores the attempt and denormalizes the bank into a
// persistable row. Caller holds s.mu.
func (s *Session) buildRecordLocked(timeUsed string) domain.AttemptRecord {
	score, tier := Grade(s.answers, s.bank, s.thresholds)
	answers := make([]domain.QuestionAnswer, 0, len(s.bank))
	for _, q := range s.bank {
		answers = append(answers, domain.QuestionAnswer{
			QuestionID:    q.ID,
			QuestionText:  q.Text,
			UserAnswer:    s.answers[q.ID],
			CorrectAnswer: q.CorrectAnswer,
		})
	}
	return domain.AttemptRecord{
		User:      s.user,
		Timestamp: s.now(),
		Score:     score,
		TimeUsed:  timeUsed,
		Tier:      tier,
		Answers:   answers,
	}
}

// view snapshots the session for rendering. Remaining is computed against the
// session clock and clamped at zero.
func (s *Session) view() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := SessionView{
		Key:      s.key,
		User:     s.user,
		Phase:    s.phase,
		Index:    s.current,
		Total:    len(s.bank),
		Answered: len(s.answers),
	}
	if s.current >= 0 && s.current < len(s.bank) {
		q := s.bank[s.current]
		v.QuestionID = q.ID
		v.QuestionText = q.Text
		v.Options = append([]string(nil), q.Options...)
		v.Selected = s.answers[q.ID]
	}
	if s.phase == domain.PhaseRunning {
		if remaining := s.duration - s.now().Sub(s.startedAt); remaining > 0 {
			v.Remaining = remaining
		}
	}
	return v
}

// Duration returns the configured attempt duration.
func (s *Session) Duration() time.Duration { return s.duration }
