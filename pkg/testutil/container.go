// Package testutil provides the PostgreSQL test container, sqlmock helpers,
// location and item fixtures, and HTTP helpers shared by the warehouse tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultPostgresImage = "postgres:15-alpine"
	testDatabase         = "warehouse_test"
	testUser             = "warehouse"
	testPassword         = "warehouse"
)

// PostgresContainer is a throwaway PostgreSQL instance and its DSN.
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// postgresImage lets CI pin a mirrored image through
// WAREHOUSE_TEST_POSTGRES_IMAGE.
func postgresImage() string {
	if image := os.Getenv("WAREHOUSE_TEST_POSTGRES_IMAGE"); image != "" {
		return image
	}
	return defaultPostgresImage
}

// NewPostgresContainer starts PostgreSQL and waits until it accepts
// connections. The server logs readiness twice: once for the init run and
// once for the real start.
func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(postgresImage()),
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUser),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{PostgresContainer: container, DSN: dsn}, nil
}
