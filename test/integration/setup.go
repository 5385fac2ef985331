package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	handler "github.com/wevote/api/internal/adapters/handler/http"
	repo "github.com/wevote/api/internal/adapters/repository/postgres"
	"github.com/wevote/api/internal/core/services"
)

const testJWTSecret = "test-secret"

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	dbName := "testdb"
	user := "user"
	password := "password"

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func applyMigrations(db *sql.DB) error {
	dirPath := "../../internal/adapters/repository/postgres/migrations"

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if !strings.HasSuffix(entry.Name(), "up.sql") {
			continue
		}

		fullPath := filepath.Join(dirPath, entry.Name())
		content, err := os.ReadFile(fullPath)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		_, err = db.Exec(string(content))
		if err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

type TestApp struct {
	DB          *sql.DB
	Server      *httptest.Server
	Client      *http.Client
	DBContainer testcontainers.Container
}

func setupTestApp(t *testing.T) *TestApp {
	t.Setenv("JWT_SECRET", testJWTSecret)
	t.Setenv("RECEIPTS_SECRET", "integration-receipt-secret")

	ctx := context.Background()
	dbContainer, dbURL, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)

	err = applyMigrations(db)
	require.NoError(t, err)

	ballotRepo := repo.NewBallotRepository(db)
	concernRepo := repo.NewConcernRepository(db)
	voteRepo := repo.NewVoteRepository(db)
	userRepo := repo.NewUserRepository(db)
	ledgerRepo := repo.NewLedgerRepository(db)
	limiter := repo.NewRateLimitRepository(db)
	auditLog := repo.NewAuditRepository(db)

	ballotSvc := services.NewBallotService(ballotRepo, concernRepo, limiter, auditLog)
	voteSvc := services.NewVoteService(ballotRepo, voteRepo, userRepo, limiter, nil, auditLog)
	tallySvc := services.NewTallyService(ballotRepo, voteRepo, ledgerRepo, nil, auditLog)
	ledgerSvc := services.NewLedgerService(ballotRepo, voteRepo, ledgerRepo)

	ballotHandler := handler.NewBallotHandler(ballotSvc, tallySvc)
	voteHandler := handler.NewVoteHandler(voteSvc)
	ledgerHandler := handler.NewLedgerHandler(ledgerSvc)
	router := handler.NewHandler(ballotHandler, voteHandler, ledgerHandler, []byte(testJWTSecret))

	server := httptest.NewServer(router)

	return &TestApp{
		DB:          db,
		Server:      server,
		Client:      server.Client(),
		DBContainer: dbContainer,
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}

type testUser struct {
	ID    uuid.UUID
	Token string
}

func (app *TestApp) createUser(t *testing.T, tier, country, state, city string) testUser {
	t.Helper()

	userID := uuid.New()
	email := fmt.Sprintf("user-%s@example.com", userID)
	name := fmt.Sprintf("User %s", userID)
	_, err := app.DB.Exec(
		"INSERT INTO users (id, email, name, tier, region_country, region_state, region_city) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		userID, email, name, tier, nullable(country), nullable(state), nullable(city))
	require.NoError(t, err)

	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"email": email,
		"exp":   time.Now().Add(15 * time.Minute).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	return testUser{ID: userID, Token: signedToken}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (app *TestApp) createConcern(t *testing.T, createdBy uuid.UUID) uuid.UUID {
	t.Helper()

	concernID := uuid.New()
	_, err := app.DB.Exec(
		"INSERT INTO concerns (id, title, description, created_by) VALUES ($1, $2, $3, $4)",
		concernID, "Test concern", "Integration test concern", createdBy)
	require.NoError(t, err)
	return concernID
}

// doJSON sends an authenticated JSON request and decodes the response
// body into out when out is non-nil.
func (app *TestApp) doJSON(t *testing.T, method, path, token string, payload any, out any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, app.Server.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	}

	resp, err := app.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}
