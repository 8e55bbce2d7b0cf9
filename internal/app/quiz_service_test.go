package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
)

func TestStartRequiresUsername(t *testing.T) {
	service, _, _ := newTestService(t, 12*time.Minute)

	if _, err := service.Start(context.Background(), "   ", ""); !errors.Is(err, domain.ErrEmptyUser) {
		t.Fatalf("expected ErrEmptyUser, got %v", err)
	}
}

func TestStartFailsWhenBankMissing(t *testing.T) {
	sessions := memory.NewSessionStore()
	bank := memory.NewBankRepository(memory.NewStaticBankLoader(nil), time.Minute)
	service := app.NewQuizService(sessions, bank, memory.NewResultStore(), time.Minute, app.DefaultThresholds())

	if _, err := service.Start(context.Background(), "alice", ""); !errors.Is(err, domain.ErrBankNotFound) {
		t.Fatalf("expected ErrBankNotFound, got %v", err)
	}
}

func TestFullAttemptFlow(t *testing.T) {
	ctx := context.Background()
	service, results, clock := newTestService(t, 12*time.Minute)

	view, err := service.Start(ctx, "alice", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.Phase != domain.PhaseRunning || view.Index != 0 || view.Total != 2 {
		t.Fatalf("unexpected start view: %+v", view)
	}

	if _, err := service.SelectAnswer(view.Key, 0, "4"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := service.Advance(view.Key); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := service.SelectAnswer(view.Key, 1, "Paris"); err != nil {
		t.Fatalf("select 2: %v", err)
	}

	clock.advance(45 * time.Second)
	record, err := service.Submit(ctx, view.Key)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if record.Score != 2 || record.Tier != domain.TierLow || record.TimeUsed != "0:45" {
		t.Fatalf("unexpected record: %+v", record)
	}

	all, _ := results.QueryAll(ctx)
	if len(all) != 1 || all[0].User != "alice" {
		t.Fatalf("expected one persisted attempt, got %+v", all)
	}
}

func TestTickExpiryPersistsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	service, results, clock := newTestService(t, 2*time.Minute)

	view, err := service.Start(ctx, "bob", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_, _ = service.SelectAnswer(view.Key, 0, "4")

	res, err := service.Tick(ctx, view.Key, clock.now().Add(time.Minute))
	if err != nil || res.Expired {
		t.Fatalf("expected no expiry at 1m, got %+v err=%v", res, err)
	}

	res, err = service.Tick(ctx, view.Key, clock.now().Add(2*time.Minute))
	if err != nil {
		t.Fatalf("tick at deadline: %v", err)
	}
	if !res.Expired || res.Record == nil {
		t.Fatalf("expected expiry, got %+v", res)
	}
	if res.Record.TimeUsed != "2:00" {
		t.Fatalf("expected full duration reported, got %q", res.Record.TimeUsed)
	}
	if res.View.Phase != domain.PhaseExpired {
		t.Fatalf("expected expired view, got %s", res.View.Phase)
	}

	// further ticks must not append again
	res, err = service.Tick(ctx, view.Key, clock.now().Add(3*time.Minute))
	if err != nil || res.Expired {
		t.Fatalf("expected quiet tick after expiry, got %+v err=%v", res, err)
	}
	all, _ := results.QueryAll(ctx)
	if len(all) != 1 {
		t.Fatalf("expected exactly one persisted row, got %d", len(all))
	}
}

func TestSubmitReportsPersistenceFailureButStaysCompleted(t *testing.T) {
	ctx := context.Background()
	sessions := memory.NewSessionStore()
	bank := memory.NewBankRepository(memory.NewStaticBankLoader(sampleBank()), time.Minute)
	store := &failingStore{}
	service := app.NewQuizService(sessions, bank, store, time.Minute, app.DefaultThresholds())

	view, err := service.Start(ctx, "alice", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_, _ = service.SelectAnswer(view.Key, 0, "4")
	_, _ = service.Advance(view.Key)
	_, _ = service.SelectAnswer(view.Key, 1, "Paris")

	record, err := service.Submit(ctx, view.Key)
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	// the attempt reads as completed even though the row never landed
	if record.Score != 2 {
		t.Fatalf("expected scored record alongside the warning, got %+v", record)
	}
	after, _ := service.View(view.Key)
	if after.Phase != domain.PhaseCompleted {
		t.Fatalf("expected completed phase, got %s", after.Phase)
	}
}

func TestStartDiscardsPreviousSession(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t, time.Minute)

	first, _ := service.Start(ctx, "alice", "")
	second, err := service.Start(ctx, "alice", first.Key)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if second.Key == first.Key {
		t.Fatalf("expected a fresh session key")
	}
	if _, err := service.View(first.Key); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected prior session discarded, got %v", err)
	}
}

type failingStore struct{}

func (f *failingStore) Append(context.Context, domain.AttemptRecord) error {
	return fmt.Errorf("disk full")
}
func (f *failingStore) QueryAll(context.Context) ([]domain.AttemptRecord, error) {
	return nil, fmt.Errorf("disk gone")
}
func (f *failingStore) QueryByUser(context.Context, string) ([]domain.AttemptRecord, error) {
	return nil, fmt.Errorf("disk gone")
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T, duration time.Duration) (*app.QuizService, *memory.ResultStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	sessions := memory.NewSessionStore()
	bank := memory.NewBankRepository(memory.NewStaticBankLoader(sampleBank()), time.Minute)
	results := memory.NewResultStore()
	service := app.NewQuizServiceWithClock(sessions, bank, results, duration, app.DefaultThresholds(), clock.now)
	return service, results, clock
}

func sampleBank() domain.Bank {
	return domain.Bank{
		{ID: "q1", Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectAnswer: "4"},
		{ID: "q2", Text: "Capital of France?", Options: []string{"Paris", "Lyon"}, CorrectAnswer: "Paris"},
	}
}
