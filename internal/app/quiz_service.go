package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"timed-quiz-service/internal/domain"
)

// SessionRepository abstracts how active sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(key string) (*Session, bool)
	Delete(key string)
}

// BankRepository loads the question bank (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context) (domain.Bank, error)
}

// ResultStore is the append-only attempt log with its read-back surface.
// Append must be atomic per row; QueryAll returns rows in write order and
// skips malformed rows instead of failing the whole read.
type ResultStore interface {
	Append(ctx context.Context, record domain.AttemptRecord) error
	QueryAll(ctx context.Context) ([]domain.AttemptRecord, error)
	QueryByUser(ctx context.Context, user string) ([]domain.AttemptRecord, error)
}

// QuizService contains the core quiz use cases: running timed attempts and
// reading back persisted results.
type QuizService struct {
	sessions   SessionRepository
	bank       BankRepository
	results    ResultStore
	duration   time.Duration
	thresholds Thresholds
	now        func() time.Time
	newKey     func() string
}

func NewQuizService(sessions SessionRepository, bank BankRepository, results ResultStore, duration time.Duration, th Thresholds) *QuizService {
	return &QuizService{
		sessions:   sessions,
		bank:       bank,
		results:    results,
		duration:   duration,
		thresholds: th,
		now:        time.Now,
		newKey:     uuid.NewString,
	}
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(sessions SessionRepository, bank BankRepository, results ResultStore, duration time.Duration, th Thresholds, now func() time.Time) *QuizService {
	s := NewQuizService(sessions, bank, results, duration, th)
	s.now = now
	return s
}

// TickResult reports the outcome of one timer poll.
type TickResult struct {
	View    SessionView
	Expired bool
	Record  *domain.AttemptRecord
}

// Start begins a fresh attempt for user and returns its session view. The
// previous session under prevKey (if any) is discarded; persisted rows are
// untouched.
func (s *QuizService) Start(ctx context.Context, user, prevKey string) (SessionView, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return SessionView{}, domain.ErrEmptyUser
	}
	bank, err := s.bank.GetBank(ctx)
	if err != nil {
		return SessionView{}, fmt.Errorf("load question bank: %w", err)
	}

	if prevKey != "" {
		s.sessions.Delete(prevKey)
	}
	session := newSessionWithClock(s.newKey(), user, bank, s.duration, s.thresholds, s.now)
	s.sessions.Put(session)
	return session.view(), nil
}

// SelectAnswer records an option for the question at index (last write wins).
func (s *QuizService) SelectAnswer(key string, index int, option string) (SessionView, error) {
	session, ok := s.sessions.Get(key)
	if !ok {
		return SessionView{}, domain.ErrSessionNotFound
	}
	err := session.selectAnswer(index, option)
	return session.view(), err
}

// Advance moves to the next question once the current one is committed.
func (s *QuizService) Advance(key string) (SessionView, error) {
	session, ok := s.sessions.Get(key)
	if !ok {
		return SessionView{}, domain.ErrSessionNotFound
	}
	err := session.advance()
	return session.view(), err
}

// Retreat moves back one question.
func (s *QuizService) Retreat(key string) (SessionView, error) {
	session, ok := s.sessions.Get(key)
	if !ok {
		return SessionView{}, domain.ErrSessionNotFound
	}
	err := session.retreat()
	return session.view(), err
}

// Tick polls the session timer. On expiry the attempt is finalized with the
// answers committed so far and appended to the result store exactly once.
// A failed append is reported but does not undo the expiry.
func (s *QuizService) Tick(ctx context.Context, key string, now time.Time) (TickResult, error) {
	session, ok := s.sessions.Get(key)
	if !ok {
		return TickResult{}, domain.ErrSessionNotFound
	}
	_, record := session.tick(now)
	result := TickResult{View: session.view()}
	if record == nil {
		return result, nil
	}
	result.Expired = true
	result.Record = record
	if err := s.results.Append(ctx, *record); err != nil {
		return result, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return result, nil
}

// Submit completes the attempt, persists the record and returns it. When the
// append fails the attempt still reads as completed; the wrapped
// ErrPersistence tells the caller the row never landed.
func (s *QuizService) Submit(ctx context.Context, key string) (domain.AttemptRecord, error) {
	session, ok := s.sessions.Get(key)
	if !ok {
		return domain.AttemptRecord{}, domain.ErrSessionNotFound
	}
	record, err := session.submit()
	if err != nil {
		return domain.AttemptRecord{}, err
	}
	if err := s.results.Append(ctx, record); err != nil {
		return record, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return record, nil
}

// View snapshots a session for rendering.
func (s *QuizService) View(key string) (SessionView, error) {
	session, ok := s.sessions.Get(key)
	if !ok {
		return SessionView{}, domain.ErrSessionNotFound
	}
	return session.view(), nil
}

// Leave drops the in-memory session; persisted attempts are unaffected.
func (s *QuizService) Leave(key string) {
	s.sessions.Delete(key)
}

// Results returns every persisted attempt in write order.
func (s *QuizService) Results(ctx context.Context) ([]domain.AttemptRecord, error) {
	return s.results.QueryAll(ctx)
}

// ResultsByUser filters attempts by exact username, preserving write order.
// The latest attempt for a user is the last element.
func (s *QuizService) ResultsByUser(ctx context.Context, user string) ([]domain.AttemptRecord, error) {
	return s.results.QueryByUser(ctx, user)
}

// Duration returns the configured attempt duration (for UI urgency tiers).
func (s *QuizService) Duration() time.Duration { return s.duration }
