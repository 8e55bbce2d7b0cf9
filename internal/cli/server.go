package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/config"
	"timed-quiz-service/internal/infra/csvfile"
	"timed-quiz-service/internal/infra/jsonfile"
	"timed-quiz-service/internal/infra/memory"
	pginfra "timed-quiz-service/internal/infra/postgres"
	redisinfra "timed-quiz-service/internal/infra/redis"
	transport "timed-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	var bunDB *bun.DB
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB = bun.NewDB(sqldb, pgdialect.New())
	}

	// Question bank: Postgres JSONB when configured, JSON file otherwise.
	bankPath := cfg.Quiz.BankPath
	if bankPath == "" {
		bankPath = "preguntas.json"
	}
	bankID := cfg.Quiz.BankID
	if bankID == "" {
		bankID = "default"
	}
	var loader memory.BankLoader = jsonfile.NewBankLoader(bankPath)
	if pool != nil {
		loader = pginfra.NewBankLoader(pool, bankID)
	}

	bankTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var bankRepo app.BankRepository
	if redisClient != nil {
		bankRepo = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		bankRepo = memory.NewBankRepository(loader, bankTTL)
	}

	// Result store: Postgres when configured, CSV file otherwise.
	var results app.ResultStore
	if bunDB != nil {
		results = pginfra.NewResultStore(bunDB)
	} else {
		csvPath := cfg.Results.CSVPath
		if csvPath == "" {
			csvPath = "respuestas.csv"
		}
		results = csvfile.NewResultStore(csvPath)
	}

	var sessions app.SessionRepository
	duration := config.TTLDuration(cfg.Quiz.Duration, 12*time.Minute)
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, duration)
	} else {
		sessions = memory.NewSessionStore()
	}

	thresholds := app.DefaultThresholds()
	if cfg.Quiz.HighMin > 0 {
		thresholds.HighMin = cfg.Quiz.HighMin
	}
	if cfg.Quiz.MediumMin > 0 {
		thresholds.MediumMin = cfg.Quiz.MediumMin
	}

	service := app.NewQuizService(sessions, bankRepo, results, duration, thresholds)

	// A missing bank disables quiz-taking but the results browser must keep
	// serving existing rows.
	if _, err := bankRepo.GetBank(ctx); err != nil {
		log.Printf("question bank unavailable, quiz-taking disabled: %v", err)
	}

	wsHandler := transport.NewWSHandler(service)
	resultsHandler := transport.NewResultsHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/results", resultsHandler.ServeResults)
	mux.HandleFunc("/results/export", resultsHandler.ServeExport)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
