package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/ksp/warehouse/pkg/database"
	"github.com/ksp/warehouse/pkg/logger"
)

var (
	// One container per test binary, shared by every integration test.
	globalContainer *PostgresContainer
	globalDB        *database.DB
	containerOnce   sync.Once
	containerErr    error
)

// tables lists every table the migrations create, children first.
var tables = []string{
	"item_shelf_assignments",
	"items",
	"categories",
	"shelves",
	"racks",
	"rooms",
	"user_cache",
}

// IntegrationSuite gives a test a migrated, empty PostgreSQL database.
type IntegrationSuite struct {
	Container *PostgresContainer
	DB        *database.DB
	Fixtures  *Fixtures
	Logger    *logger.Logger
}

// NewIntegrationSuite returns a suite backed by the shared container,
// skipping the test under -short. Every call truncates all tables, so each
// test starts from an empty schema.
//
// Usage:
//
//	func TestBulkAdd(t *testing.T) {
//	    suite := testutil.NewIntegrationSuite(t)
//	    shelf := suite.Fixtures.Location(t, "Magazyn", "A", 1)
//	    ...
//	}
func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	t.Helper()
	SkipIfShort(t)

	ctx := context.Background()
	container, db, err := getOrCreateDatabase(ctx)
	if err != nil {
		t.Fatalf("failed to start test database: %v", err)
	}

	s := &IntegrationSuite{
		Container: container,
		DB:        db,
		Fixtures:  NewFixtures(db),
		Logger:    logger.Nop(),
	}
	s.Reset(t)
	return s
}

func getOrCreateDatabase(ctx context.Context) (*PostgresContainer, *database.DB, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx)
		if containerErr != nil {
			return
		}
		if containerErr = database.Migrate(globalContainer.DSN, logger.Nop()); containerErr != nil {
			return
		}
		globalDB, containerErr = database.Open(globalContainer.DSN, logger.Nop())
	})

	return globalContainer, globalDB, containerErr
}

// Reset empties every table and restarts the id sequences.
func (s *IntegrationSuite) Reset(t *testing.T) {
	t.Helper()
	query := "TRUNCATE TABLE "
	for i, table := range tables {
		if i > 0 {
			query += ", "
		}
		query += table
	}
	query += " RESTART IDENTITY CASCADE"

	if _, err := s.DB.ExecContext(context.Background(), query); err != nil {
		t.Fatalf("failed to reset database: %v", err)
	}
}

// TerminateContainer stops the shared container. Call it from TestMain
// after m.Run.
func TerminateContainer(ctx context.Context) {
	if globalDB != nil {
		globalDB.Close()
	}
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}
