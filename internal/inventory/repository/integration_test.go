//go:build integration

package repository_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	ctx := context.Background()
	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to start integration suite: %v", err)
	}
	code := m.Run()
	_ = suite.Cleanup(ctx)
	os.Exit(code)
}

func resetDB(t *testing.T) context.Context {
	t.Helper()
	ctx := testutil.DefaultTestContext(t)
	require.NoError(t, suite.Reset(ctx))
	return ctx
}

func TestAlerts_AtMostOneOpenPerProduct(t *testing.T) {
	ctx := resetDB(t)
	cat, err := suite.Fixtures.Catalog(ctx, testutil.ProductFixture{Stock: 3, StockMinimum: 5})
	require.NoError(t, err)

	repo := repository.NewAlertRepository(suite.DB)
	first := &domain.Alert{ProductID: cat.ProductID, State: domain.AlertPending}
	require.NoError(t, repo.Create(ctx, first))

	err = repo.Create(ctx, &domain.Alert{ProductID: cat.ProductID, State: domain.AlertActive})
	assert.True(t, errors.Is(err, errors.ErrDuplicate))

	open, err := repo.HasOpen(ctx, cat.ProductID)
	require.NoError(t, err)
	assert.True(t, open)

	// Closing the first alert frees the slot.
	first.State = domain.AlertArchived
	require.NoError(t, repo.Update(ctx, first))
	assert.NoError(t, repo.Create(ctx, &domain.Alert{ProductID: cat.ProductID, State: domain.AlertPending}))
}

func TestEntries_AtMostOnePerOrder(t *testing.T) {
	ctx := resetDB(t)
	cat, err := suite.Fixtures.Catalog(ctx, testutil.ProductFixture{Stock: 3, StockMinimum: 5})
	require.NoError(t, err)

	orders := repository.NewOrderRepository(suite.DB)
	order := &domain.Order{ProductID: cat.ProductID, SupplierID: cat.SupplierID, QuantityOrdered: 10, State: domain.OrderCompleted}
	require.NoError(t, orders.Create(ctx, order))

	entries := repository.NewEntryRepository(suite.DB)
	newEntry := func() *domain.Entry {
		return &domain.Entry{
			ProductID: cat.ProductID, OrderID: &order.ID, SupplierID: &cat.SupplierID,
			Quantity: 10, UnitPrice: decimal.NewFromInt(100), Total: decimal.NewFromInt(1000),
		}
	}
	require.NoError(t, entries.Create(ctx, newEntry()))
	assert.True(t, errors.Is(entries.Create(ctx, newEntry()), errors.ErrDuplicate))

	exists, err := entries.ExistsForOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestProducts_StockCannotGoNegative(t *testing.T) {
	ctx := resetDB(t)
	cat, err := suite.Fixtures.Catalog(ctx, testutil.ProductFixture{Stock: 5, StockMinimum: 1})
	require.NoError(t, err)

	products := repository.NewProductRepository(suite.DB)
	err = suite.DB.WithTx(ctx, func(ctx context.Context) error {
		p, err := products.LockForUpdate(ctx, cat.ProductID)
		if err != nil {
			return err
		}
		return products.SetStock(ctx, p.ID, p.Stock-10)
	})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	p, err := products.GetByID(ctx, cat.ProductID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
	assert.Equal(t, cat.SupplierID, *p.SupplierID)
}

func TestLots_DeleteWithProductsIsStateConflict(t *testing.T) {
	ctx := resetDB(t)
	cat, err := suite.Fixtures.Catalog(ctx, testutil.ProductFixture{Stock: 1})
	require.NoError(t, err)

	err = repository.NewLotRepository(suite.DB).Delete(ctx, cat.LotID)
	assert.True(t, errors.Is(err, errors.ErrStateConflict))
}

func TestPriceHistory_Latest(t *testing.T) {
	ctx := resetDB(t)
	cat, err := suite.Fixtures.Catalog(ctx, testutil.ProductFixture{Stock: 1})
	require.NoError(t, err)

	repo := repository.NewPriceHistoryRepository(suite.DB)
	_, err = repo.Latest(ctx, cat.ProductID, cat.SupplierID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	require.NoError(t, repo.Create(ctx, &domain.PriceHistory{ProductID: cat.ProductID, SupplierID: cat.SupplierID, Price: decimal.NewFromInt(1000)}))
	require.NoError(t, repo.Create(ctx, &domain.PriceHistory{ProductID: cat.ProductID, SupplierID: cat.SupplierID, Price: decimal.NewFromInt(1200)}))

	latest, err := repo.Latest(ctx, cat.ProductID, cat.SupplierID)
	require.NoError(t, err)
	assert.True(t, latest.Price.Equal(decimal.NewFromInt(1200)))
}

func TestGeography_ListComunas(t *testing.T) {
	ctx := testutil.DefaultTestContext(t)
	comunas, err := repository.NewGeographyRepository(suite.DB).ListComunas(ctx)
	require.NoError(t, err)
	assert.Len(t, comunas, 8)
	assert.Equal(t, "Chile", comunas[0].Country)
}
