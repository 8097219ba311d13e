package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/database"
)

// PostgresImage is the server image integration tests run against.
const PostgresImage = "postgres:16-alpine"

const (
	testUser     = "reportly"
	testPassword = "test_password"
	testDatabase = "reportly_test"
	appDatabase  = "reportly_app_test"
)

// TestDB holds a shared test database container and a superuser pool.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	ConnStr   string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

// ConnString builds a connection string for database on the shared container.
func (tdb *TestDB) ConnString(ctx context.Context, user, password, dbName string) (string, error) {
	host, err := tdb.Container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := tdb.Container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("failed to get container port: %w", err)
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		user, password, host, port.Port(), dbName), nil
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       testDatabase,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		// The server logs readiness twice: once for the init pass, once for real.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	tdb := &TestDB{Container: container}
	tdb.ConnStr, err = tdb.ConnString(ctx, testUser, testPassword, testDatabase)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, tdb.ConnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	tdb.Pool = pool
	return tdb, nil
}

// EngineDB holds the application database with migrations applied.
// Use this for testing repositories and services against a real database.
type EngineDB struct {
	DB      *database.DB
	ConnStr string
}

var (
	sharedEngineDB     *EngineDB
	sharedEngineDBOnce sync.Once
	sharedEngineDBErr  error
)

// GetEngineDB returns a shared, migrated application database.
func GetEngineDB(t *testing.T) *EngineDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	testDB := GetTestDB(t)

	sharedEngineDBOnce.Do(func() {
		sharedEngineDB, sharedEngineDBErr = setupEngineDB(testDB)
	})

	if sharedEngineDBErr != nil {
		t.Fatalf("Failed to setup engine database: %v", sharedEngineDBErr)
	}

	return sharedEngineDB
}

func setupEngineDB(testDB *TestDB) (*EngineDB, error) {
	ctx := context.Background()

	if _, err := testDB.Pool.Exec(ctx, "CREATE DATABASE "+appDatabase); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", appDatabase, err)
	}

	connStr, err := testDB.ConnString(ctx, testUser, testPassword, appDatabase)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open sql connection: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: 5,
	}, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to engine database: %w", err)
	}

	return &EngineDB{
		DB:      db,
		ConnStr: connStr,
	}, nil
}

// UserContext returns a context carrying a connection scoped to userID, the
// way the HTTP middleware prepares it. The scope is released on test cleanup.
func (e *EngineDB) UserContext(t *testing.T, userID string) context.Context {
	t.Helper()

	scope, err := e.DB.WithUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("Failed to acquire user scope: %v", err)
	}
	t.Cleanup(scope.Close)

	return database.SetUserScope(context.Background(), scope)
}

// CleanupUser removes every row owned by userID.
func (e *EngineDB) CleanupUser(t *testing.T, userID string) {
	t.Helper()

	ctx := context.Background()
	for _, table := range []string{"report_generations", "design_templates", "script_library", "user_settings"} {
		if _, err := e.DB.Pool.Exec(ctx, "DELETE FROM "+table+" WHERE user_id = $1", userID); err != nil {
			t.Fatalf("Failed to clean %s for %s: %v", table, userID, err)
		}
	}
}
