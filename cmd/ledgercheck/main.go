package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/wevote/api/internal/adapters/repository/postgres"
	"github.com/wevote/api/internal/core/ledger"
)

// Scheduled integrity job: walks the whole ledger chain and fails loudly
// when any link, hash or sequence number does not verify. Meant to run
// from cron against the live database.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	var dbHost, dbPort, dbUser, dbPass, dbName string

	flag.StringVar(&dbHost, "db-host", os.Getenv("POSTGRES_HOST"), "Database host")
	flag.StringVar(&dbPort, "db-port", os.Getenv("POSTGRES_PORT"), "Database port")
	flag.StringVar(&dbUser, "db-user", os.Getenv("POSTGRES_USER"), "Database user")
	flag.StringVar(&dbPass, "db-pass", os.Getenv("POSTGRES_PASSWORD"), "Database password")
	flag.StringVar(&dbName, "db-name", os.Getenv("POSTGRES_DB"), "Database name")
	flag.Parse()

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPass, dbHost, dbPort, dbName)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	ledgerRepo := postgres.NewLedgerRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Println("Starting ledger integrity check...")

	entries, err := ledgerRepo.All(ctx)
	if err != nil {
		log.Fatalf("Error loading ledger: %v", err)
	}

	issues := ledger.Verify(entries)
	if len(issues) > 0 {
		for _, issue := range issues {
			log.Printf("ledger integrity violation: %s", issue)
		}
		log.Fatalf("Ledger integrity check failed: %d issue(s) across %d entries", len(issues), len(entries))
	}

	log.Printf("Ledger integrity check passed: %d entries verified.", len(entries))
}
