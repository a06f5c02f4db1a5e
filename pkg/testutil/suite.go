package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/maestranza/maestranza-backend/pkg/database"
	"github.com/maestranza/maestranza-backend/pkg/logger"
)

var (
	// Shared across all integration tests of a package
	globalContainer *PostgresContainer
	globalDB        *database.DB
	containerOnce   sync.Once
	containerErr    error
)

// dataTables lists every table Reset truncates; geography is reference data and survives.
var dataTables = []string{
	"notifications", "audit_log", "kit_items", "kits", "price_history",
	"quotations", "physical_counts", "exits", "entries", "order_items",
	"alerts", "orders", "products", "lots", "categories", "suppliers", "users",
}

// IntegrationSuite provides a base for integration tests with real PostgreSQL
type IntegrationSuite struct {
	Container *PostgresContainer
	DB        *database.DB
	Fixtures  *FixtureFactory
	Logger    *logger.Logger
}

// NewIntegrationSuite starts (once) a migrated PostgreSQL container.
//
// Usage:
//
//	var suite *testutil.IntegrationSuite
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    var err error
//	    suite, err = testutil.NewIntegrationSuite(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    code := m.Run()
//	    suite.Cleanup(ctx)
//	    os.Exit(code)
//	}
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	log := logger.NewNop()

	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
		if containerErr != nil {
			return
		}
		globalDB, containerErr = globalContainer.ConnectMigrated(ctx, log)
	})
	if containerErr != nil {
		return nil, containerErr
	}

	return &IntegrationSuite{
		Container: globalContainer,
		DB:        globalDB,
		Fixtures:  NewFixtureFactory(globalDB),
		Logger:    log,
	}, nil
}

// Reset truncates every data table
func (s *IntegrationSuite) Reset(ctx context.Context) error {
	q := fmt.Sprintf("TRUNCATE %s CASCADE", strings.Join(dataTables, ", "))
	if _, err := s.DB.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

// Cleanup closes the connection and terminates the container
func (s *IntegrationSuite) Cleanup(ctx context.Context) error {
	if s.DB != nil {
		s.DB.Close()
	}
	if s.Container != nil {
		return s.Container.Terminate(ctx)
	}
	return nil
}
