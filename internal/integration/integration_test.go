package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	pginfra "timed-quiz-service/internal/infra/postgres"
	pgmigrations "timed-quiz-service/internal/infra/postgres/migrations"
	infraredis "timed-quiz-service/internal/infra/redis"
)

func TestTimedAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := seedBank(t, ctx, pgURL, sampleBank())
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pginfra.NewBankLoader(pool, "default")

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	bankRepo := infraredis.NewBankRepository(redisClient, loader, 5*time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	results := pginfra.NewResultStore(db)
	service := app.NewQuizService(sessions, bankRepo, results, 12*time.Minute, app.DefaultThresholds())

	view, err := service.Start(ctx, "alice", "")
	if err != nil {
		t.Fatalf("start: %v", err)
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

	record, err := service.Submit(ctx, view.Key)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if record.Score != 2 || record.Tier != domain.TierLow {
		t.Fatalf("expected 2/Low, got %d/%s", record.Score, record.Tier)
	}

	stored, err := service.ResultsByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored attempt, got %d", len(stored))
	}
	got := stored[0]
	if got.Score != 2 || got.TimeUsed != record.TimeUsed || len(got.Answers) != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Answers[1].UserAnswer != "Paris" {
		t.Fatalf("answers not preserved: %+v", got.Answers)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

// seedBank migrates the schema and inserts the bank; the returned DB stays
// open for the postgres result store.
func seedBank(t *testing.T, ctx context.Context, dsn string, bank domain.Bank) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(bank)
	if err != nil {
		t.Fatalf("marshal bank: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO question_banks (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, "default", string(data)); err != nil {
		t.Fatalf("insert bank: %v", err)
	}
	return db
}

func sampleBank() domain.Bank {
	return domain.Bank{
		{ID: "q1", Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectAnswer: "4"},
		{ID: "q2", Text: "Capital of France?", Options: []string{"Paris", "Lyon"}, CorrectAnswer: "Paris"},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
