package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/wevote/api/internal/adapters/handler/http"
	"github.com/wevote/api/internal/adapters/repository/postgres"
	"github.com/wevote/api/internal/adapters/signer"
	"github.com/wevote/api/internal/core/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	db, err := sql.Open("postgres", dbConnString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to reach database: %v", err)
	}

	ledgerSigner, err := signer.NewFromEnv()
	if err != nil {
		log.Fatalf("Invalid LEDGER_SIGNING_KEY: %v", err)
	}
	if ledgerSigner == nil {
		log.Println("LEDGER_SIGNING_KEY not set; ledger entries will be unsigned")
	}

	ballotRepo := postgres.NewBallotRepository(db)
	concernRepo := postgres.NewConcernRepository(db)
	voteRepo := postgres.NewVoteRepository(db)
	userRepo := postgres.NewUserRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)
	limiter := postgres.NewRateLimitRepository(db)
	auditLog := postgres.NewAuditRepository(db)

	ballotSvc := services.NewBallotService(ballotRepo, concernRepo, limiter, auditLog)
	voteSvc := services.NewVoteService(ballotRepo, voteRepo, userRepo, limiter, ledgerSigner, auditLog)
	tallySvc := services.NewTallyService(ballotRepo, voteRepo, ledgerRepo, ledgerSigner, auditLog)
	ledgerSvc := services.NewLedgerService(ballotRepo, voteRepo, ledgerRepo)

	ballotHandler := http.NewBallotHandler(ballotSvc, tallySvc)
	voteHandler := http.NewVoteHandler(voteSvc)
	ledgerHandler := http.NewLedgerHandler(ledgerSvc)

	handler := http.NewHandler(ballotHandler, voteHandler, ledgerHandler, []byte(jwtSecret))
	server := &stdhttp.Server{Addr: "0.0.0.0:8080", Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	fmt.Println("Gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err)
	}
}

func dbConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("POSTGRES_HOST"),
		os.Getenv("POSTGRES_PORT"),
		os.Getenv("POSTGRES_DB"),
	)
}
