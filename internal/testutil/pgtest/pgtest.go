// Package pgtest provides throwaway PostgreSQL databases for integration
// tests. METERLOADER_TEST_DSN points the tests at an existing server;
// otherwise one container is started per test binary.
package pgtest

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/config"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/database"
)

const (
	EnvDSN = "METERLOADER_TEST_DSN"
	image  = "postgres:16-alpine"
)

var (
	once     sync.Once
	adminDSN string
	startErr error
)

func start() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx,
		image,
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.WithDatabase("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		startErr = fmt.Errorf("start postgres: %w", err)
		return
	}
	adminDSN, startErr = ctr.ConnectionString(ctx, "sslmode=disable")
}

// NewPool returns a pool on a fresh, migrated database that is dropped when
// the test ends. It skips the test under -short or when no server is
// available.
func NewPool(t *testing.T) *database.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}

	if dsn := os.Getenv(EnvDSN); dsn != "" {
		once.Do(func() { adminDSN = dsn })
	} else {
		testcontainers.SkipIfProviderIsNotHealthy(t)
		once.Do(start)
	}
	if startErr != nil {
		t.Skipf("postgres unavailable: %v", startErr)
	}

	ctx := context.Background()
	admin, err := sqlx.ConnectContext(ctx, "pgx", adminDSN)
	require.NoError(t, err)
	defer admin.Close()

	name := "meterloader_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.ExecContext(ctx, "CREATE DATABASE "+name)
	require.NoError(t, err)

	dsn, err := withDatabase(adminDSN, name)
	require.NoError(t, err)

	pool, err := database.Connect(ctx, config.DatabaseConfig{DSN: dsn, MaxOpenConns: 32})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, pool))

	t.Cleanup(func() {
		_ = pool.Close()
		admin, err := sqlx.ConnectContext(context.Background(), "pgx", adminDSN)
		if err != nil {
			t.Logf("drop %s: %v", name, err)
			return
		}
		defer admin.Close()
		if _, err := admin.ExecContext(context.Background(), "DROP DATABASE IF EXISTS "+name+" WITH (FORCE)"); err != nil {
			t.Logf("drop %s: %v", name, err)
		}
	})
	return pool
}

func withDatabase(dsn, name string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	u.Path = "/" + name
	return u.String(), nil
}
