package service

import (
	"context"
	"testing"
	"time"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProduct(t *testing.T) {
	env := newTestEnv(t, nil)
	lot, err := env.catalog.CreateLot(context.Background(), LotInput{Code: "L-2026-01"})
	require.NoError(t, err)

	p, err := env.catalog.CreateProduct(context.Background(), ProductInput{
		Name:    "Guante nitrilo",
		Barcode: " 7801234567890 ",
		SKU:     "gua-nit-m",
		Price:   decimal.NewFromInt(3490),
		Stock:   40,
		LotID:   lot.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultStockMinimum, p.StockMinimum)
	assert.Equal(t, "7801234567890", p.Barcode)
	assert.Equal(t, "GUA-NIT-M", p.SKU)
	assert.True(t, p.Enabled)
	assert.Equal(t, []string{domain.AuditCreate}, env.auditActions(domain.ModelProduct))
}

func TestCreateProduct_CollectsFieldErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.catalog.CreateProduct(context.Background(), ProductInput{
		Name:         "Casco",
		Barcode:      "12AB",
		SKU:          "CA",
		Price:        decimal.Zero,
		Stock:        5,
		StockMinimum: testutil.PtrInt(10),
		LotID:        "lot-x",
	})
	require.Error(t, err)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Details, "barcode")
	assert.Contains(t, appErr.Details, "sku")
	assert.Contains(t, appErr.Details, "price")
	assert.Contains(t, appErr.Details, "stock_minimum")
	assert.Empty(t, env.db.products)
}

func TestCreateProduct_UnknownLot(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.catalog.CreateProduct(context.Background(), ProductInput{
		Name: "Casco", Barcode: "78000002", SKU: "CAS-01", Price: decimal.NewFromInt(100), Stock: 30, LotID: "missing",
	})
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Details, "lot_id")
}

func TestLookupProduct(t *testing.T) {
	env := newTestEnv(t, nil)
	productID := env.seedProduct(4, 1)
	p := env.db.products[productID]

	byBarcode, err := env.catalog.LookupProduct(context.Background(), " "+p.Barcode+" ")
	require.NoError(t, err)
	assert.Equal(t, productID, byBarcode.ID)
	assert.Equal(t, "Ferretería Sur", *byBarcode.SupplierName)

	bySKU, err := env.catalog.LookupProduct(context.Background(), p.SKU)
	require.NoError(t, err)
	assert.Equal(t, productID, bySKU.ID)

	_, err = env.catalog.LookupProduct(context.Background(), "0000000000")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = env.catalog.LookupProduct(context.Background(), "   ")
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestUpdateProduct_DoesNotTouchStock(t *testing.T) {
	env := newTestEnv(t, nil)
	productID := env.seedProduct(25, 5)

	minimum := 30
	name := "Perno M8 zincado"
	p, err := env.catalog.UpdateProduct(context.Background(), productID, ProductUpdate{Name: &name, StockMinimum: &minimum})
	require.NoError(t, err)
	assert.Equal(t, name, p.Name)
	assert.Equal(t, 30, p.StockMinimum)
	assert.Equal(t, 25, p.Stock)
	assert.True(t, p.IsLowStock())
}

func TestDeleteProduct_RequiresZeroStock(t *testing.T) {
	env := newTestEnv(t, nil)
	stocked := env.seedProduct(3, 1)
	empty := env.seedProduct(0, 1)

	err := env.catalog.DeleteProduct(context.Background(), stocked)
	assert.True(t, errors.Is(err, errors.ErrStateConflict))
	require.NoError(t, env.catalog.DeleteProduct(context.Background(), empty))
	assert.NotContains(t, env.db.products, empty)
}

func TestLotDates(t *testing.T) {
	env := newTestEnv(t, nil)
	now := env.db.clock

	_, err := env.catalog.CreateLot(context.Background(), LotInput{Code: "L1", ManufactureDate: testutil.PtrTime(now.Add(48 * time.Hour))})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = env.catalog.CreateLot(context.Background(), LotInput{
		Code:            "L2",
		ManufactureDate: testutil.PtrTime(now.AddDate(0, -1, 0)),
		ExpiryDate:      testutil.PtrTime(now.AddDate(0, -2, 0)),
	})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	lot, err := env.catalog.CreateLot(context.Background(), LotInput{
		Code:            "L3",
		ManufactureDate: testutil.PtrTime(now.AddDate(0, -1, 0)),
		ExpiryDate:      testutil.PtrTime(now.AddDate(1, 0, 0)),
	})
	require.NoError(t, err)
	assert.Equal(t, "L3", lot.Code)
}

func TestDeleteLot_WithProductsConflicts(t *testing.T) {
	env := newTestEnv(t, nil)
	productID := env.seedProduct(0, 0)
	lotID := env.db.products[productID].LotID

	err := env.catalog.DeleteLot(context.Background(), lotID)
	assert.True(t, errors.Is(err, errors.ErrStateConflict))

	require.NoError(t, env.catalog.DeleteProduct(context.Background(), productID))
	require.NoError(t, env.catalog.DeleteLot(context.Background(), lotID))
}

func TestCreateSupplier_NormalizesFields(t *testing.T) {
	env := newTestEnv(t, nil)

	sup, err := env.catalog.CreateSupplier(context.Background(), SupplierInput{
		Name:  "Aceros Andes",
		RUT:   "761234560",
		Email: " Compras@AcerosAndes.CL ",
		Phone: testutil.PtrString("9 1234 5678"),
	})
	require.NoError(t, err)
	assert.Equal(t, "76.123.456-0", sup.RUT)
	assert.Equal(t, "compras@acerosandes.cl", sup.Email)
	require.NotNil(t, sup.Phone)
	assert.Equal(t, "+56912345678", *sup.Phone)

	_, err = env.catalog.CreateSupplier(context.Background(), SupplierInput{Name: "X", RUT: "76.123.456-1", Email: "x@x.cl"})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestDeleteSupplier_Referenced(t *testing.T) {
	env := newTestEnv(t, nil)
	productID := env.seedProduct(0, 0)

	err := env.catalog.DeleteSupplier(context.Background(), env.supplierOf(productID))
	assert.True(t, errors.Is(err, errors.ErrStateConflict))

	free, err := env.catalog.CreateSupplier(context.Background(), SupplierInput{Name: "Libre", RUT: "76.123.456-0", Email: "a@b.cl"})
	require.NoError(t, err)
	require.NoError(t, env.catalog.DeleteSupplier(context.Background(), free.ID))
}

func TestDeleteCategory_UsedByLot(t *testing.T) {
	env := newTestEnv(t, nil)
	cat, err := env.catalog.CreateCategory(context.Background(), CategoryInput{Name: "EPP"})
	require.NoError(t, err)
	lot, err := env.catalog.CreateLot(context.Background(), LotInput{Code: "L-EPP", CategoryID: &cat.ID})
	require.NoError(t, err)

	err = env.catalog.DeleteCategory(context.Background(), cat.ID)
	assert.True(t, errors.Is(err, errors.ErrStateConflict))

	require.NoError(t, env.catalog.DeleteLot(context.Background(), lot.ID))
	require.NoError(t, env.catalog.DeleteCategory(context.Background(), cat.ID))
}

func TestListComunas(t *testing.T) {
	env := newTestEnv(t, nil)

	comunas, err := env.catalog.ListComunas(context.Background())
	require.NoError(t, err)
	require.Len(t, comunas, 1)
	assert.Equal(t, "Santiago", comunas[0].Name)
}
