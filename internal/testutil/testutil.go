package testutil

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/campushq/campus-api/internal/api"
	"github.com/campushq/campus-api/internal/config"
	"github.com/campushq/campus-api/internal/domain"
	"github.com/campushq/campus-api/internal/mail"
	repoPostgres "github.com/campushq/campus-api/internal/repository/postgres"
	"github.com/campushq/campus-api/internal/service"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_campus"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&domain.User{},
		&domain.Account{},
		&domain.Session{},
		&domain.ApiClient{},
		&domain.Plan{},
		&domain.Subscription{},
	)
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"subscriptions",
		"plans",
		"sessions",
		"accounts",
		"api_clients",
		"users",
	}
	for _, table := range tables {
		if err := tdb.DB.Exec("TRUNCATE TABLE " + table + " CASCADE").Error; err != nil {
			t.Fatalf("failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a config suitable for tests
func TestConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		Environment:        "test",
		AccessTokenSecret:  "test-access-secret",
		RefreshTokenSecret: "test-refresh-secret",
		TokenIssuer:        "campus-api-test",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    168 * time.Hour,
		ProviderTimeout:    5 * time.Second,
		AppRedirectURL:     "http://localhost:3000/auth/callback",
		ErrorRedirectURL:   "http://localhost:3000/auth/error",
		VerifyBaseURL:      "http://localhost:3000/verify-email",
	}
}

// NewServices wires the service layer over a test database with the identity
// verifier stubbed out
func NewServices(t *testing.T, testDB *TestDB, identity service.IdentityVerifier) *service.Services {
	t.Helper()

	if identity == nil {
		identity = service.NewDisabledVerifier()
	}
	repos := repoPostgres.NewRepositories(testDB.DB)
	log := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	return service.NewServices(repos, TestConfig(), identity, mail.NewNoopMailer(), log)
}

// TestServer wraps an httptest server around the full router
type TestServer struct {
	*httptest.Server
}

func NewTestServer(t *testing.T, testDB *TestDB) *TestServer {
	t.Helper()

	services := NewServices(t, testDB, nil)
	router := api.NewRouter(services, nil, TestConfig())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &TestServer{Server: srv}
}

// APIURL builds an absolute URL for an /api/v1 path
func (ts *TestServer) APIURL(path string) string {
	return ts.URL + "/api/v1" + path
}
