package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productRowColumns = []string{
	"id", "name", "description", "barcode", "sku", "price", "stock", "stock_minimum",
	"lot_id", "enabled", "created_at", "updated_at",
}

func TestProductRepository_LockAndSetStockShareTransaction(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	db := mockDB.Database()
	repo := repository.NewProductRepository(db)

	now := time.Now()
	mockDB.ExpectBegin()
	mockDB.ExpectQuery("FROM products p WHERE p.id = $1 FOR UPDATE").
		WithArgs("p1").
		WillReturnRows(testutil.MockRows(productRowColumns...).
			AddRow("p1", "Perno M8", "", "78000001", "PER-M8", "1990.00", 5, 2, "l1", true, now, now))
	mockDB.ExpectExec("UPDATE products SET stock = $2").
		WithArgs("p1", 8).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	err := db.WithTx(context.Background(), func(ctx context.Context) error {
		p, err := repo.LockForUpdate(ctx, "p1")
		if err != nil {
			return err
		}
		assert.True(t, p.Price.Equal(decimal.RequireFromString("1990")))
		return repo.SetStock(ctx, p.ID, p.Stock+3)
	})
	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestProductRepository_FailureRollsBack(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	db := mockDB.Database()
	repo := repository.NewProductRepository(db)

	mockDB.ExpectBegin()
	mockDB.ExpectExec("UPDATE products SET stock = $2").
		WithArgs("p1", -1).
		WillReturnError(&pq.Error{Code: "23514", Constraint: "products_stock_non_negative"})
	mockDB.ExpectRollback()

	err := db.WithTx(context.Background(), func(ctx context.Context) error {
		return repo.SetStock(ctx, "p1", -1)
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	mockDB.ExpectationsWereMet(t)
}

func TestProductRepository_SetStock_NotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewProductRepository(mockDB.Database())

	mockDB.ExpectExec("UPDATE products SET stock = $2").
		WithArgs("missing", 1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetStock(context.Background(), "missing", 1)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	mockDB.ExpectationsWereMet(t)
}

func TestAlertRepository_Create_SecondOpenAlertIsDuplicate(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewAlertRepository(mockDB.Database())

	mockDB.ExpectQuery("INSERT INTO alerts").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "alerts_one_open_per_product"})

	err := repo.Create(context.Background(), &domain.Alert{ProductID: "p1", State: domain.AlertPending})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicate))
	assert.Contains(t, err.Error(), "open alert")
	mockDB.ExpectationsWereMet(t)
}

func TestEntryRepository_SecondEntryForOrderIsDuplicate(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewEntryRepository(mockDB.Database())

	orderID := "o1"
	mockDB.ExpectQuery("INSERT INTO entries").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "entries_order_unique"})

	err := repo.Create(context.Background(), &domain.Entry{ProductID: "p1", OrderID: &orderID, Quantity: 1})
	assert.True(t, errors.Is(err, errors.ErrDuplicate))
	mockDB.ExpectationsWereMet(t)
}

func TestProductRepository_List(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewProductRepository(mockDB.Database())

	now := time.Now()
	mockDB.ExpectQuery("SELECT COUNT(*) FROM products p").
		WithArgs("%perno%", "%perno%", "%perno%", "l1").
		WillReturnRows(testutil.MockRows("count").AddRow(1))
	mockDB.ExpectQuery("ORDER BY p.name LIMIT $5 OFFSET $6").
		WithArgs("%perno%", "%perno%", "%perno%", "l1", 20, 0).
		WillReturnRows(testutil.MockRows(append(productRowColumns, "lot_code", "supplier_id", "supplier_name")...).
			AddRow("p1", "Perno M8", "", "78000001", "PER-M8", "1990.00", 5, 2, "l1", true, now, now, "LOT-1", "s1", "Ferretería Sur"))

	products, total, err := repo.List(context.Background(),
		repository.ProductFilter{Search: "perno", LotID: "l1", LowStock: true},
		repository.Page{Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, products, 1)
	assert.Equal(t, "LOT-1", products[0].LotCode)
	require.NotNil(t, products[0].SupplierName)
	assert.Equal(t, "Ferretería Sur", *products[0].SupplierName)
	mockDB.ExpectationsWereMet(t)
}

func TestProductRepository_GetByCodeMatchesBarcodeOrSKU(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewProductRepository(mockDB.Database())

	now := time.Now()
	cols := append(append([]string{}, productRowColumns...), "lot_code", "supplier_id", "supplier_name")
	mockDB.ExpectQuery("WHERE p.barcode = $1 OR p.sku = upper($1)").
		WithArgs("per-m8").
		WillReturnRows(testutil.MockRows(cols...).
			AddRow("p1", "Perno M8", "", "78000001", "PER-M8", "1990.00", 5, 2, "l1", true, now, now, "L-01", "s1", "Ferretería Sur"))

	p, err := repo.GetByCode(context.Background(), "per-m8")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	require.NotNil(t, p.SupplierName)
	assert.Equal(t, "Ferretería Sur", *p.SupplierName)
	mockDB.ExpectationsWereMet(t)
}
