package database_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/maestranza/maestranza-backend/pkg/database"
	apperrors "github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTx_CommitsAndExposesTx(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	db := mockDB.Database()

	mockDB.ExpectBegin()
	mockDB.ExpectExec("UPDATE products SET stock = $1 WHERE id = $2").
		WithArgs(7, "p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	err := db.WithTx(context.Background(), func(ctx context.Context) error {
		assert.True(t, database.InTx(ctx))
		_, err := db.Executor(ctx).ExecContext(ctx, "UPDATE products SET stock = $1 WHERE id = $2", 7, "p-1")
		return err
	})

	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	db := mockDB.Database()

	boom := errors.New("audit insert failed")
	mockDB.ExpectBegin()
	mockDB.ExpectRollback()

	err := db.WithTx(context.Background(), func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	mockDB.ExpectationsWereMet(t)
}

func TestWithTx_NestedCallJoinsOuterTransaction(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	db := mockDB.Database()

	// A single Begin/Commit pair proves the inner call did not open its own transaction.
	mockDB.ExpectBegin()
	mockDB.ExpectCommit()

	err := db.WithTx(context.Background(), func(outer context.Context) error {
		return db.WithTx(outer, func(inner context.Context) error {
			assert.True(t, database.InTx(inner))
			return nil
		})
	})

	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestExecutor_WithoutTxUsesPool(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	db := mockDB.Database()

	assert.False(t, database.InTx(context.Background()))
	assert.Equal(t, db.DB, db.Executor(context.Background()))
}

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		detail   string
	}{
		{
			name:     "unique violation",
			err:      &pq.Error{Code: "23505", Constraint: "products_sku_key"},
			sentinel: apperrors.ErrDuplicate,
		},
		{
			name:     "open alert unique index",
			err:      &pq.Error{Code: "23505", Constraint: "alerts_one_open_per_product"},
			sentinel: apperrors.ErrDuplicate,
		},
		{
			name:     "restrict delete",
			err:      &pq.Error{Code: "23503", Message: `update or delete on table "lots" violates foreign key constraint`, Table: "lots"},
			sentinel: apperrors.ErrStateConflict,
		},
		{
			name:     "missing reference",
			err:      &pq.Error{Code: "23503", Message: `insert or update on table "products" violates foreign key constraint`, Constraint: "products_lot_id_fkey"},
			sentinel: apperrors.ErrValidation,
			detail:   "lot_id",
		},
		{
			name:     "check constraint",
			err:      &pq.Error{Code: "23514", Constraint: "products_price_positive"},
			sentinel: apperrors.ErrValidation,
			detail:   "price",
		},
		{
			name:     "not null",
			err:      &pq.Error{Code: "23502", Column: "name"},
			sentinel: apperrors.ErrValidation,
			detail:   "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := database.MapPQError(tt.err)
			require.NotNil(t, appErr)
			assert.True(t, apperrors.Is(appErr, tt.sentinel))
			if tt.detail != "" {
				assert.Contains(t, appErr.Details, tt.detail)
			}
		})
	}

	assert.Nil(t, database.MapPQError(errors.New("plain")))
	assert.Nil(t, database.MapPQError(&pq.Error{Code: "40001"}))
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, database.Translate(nil, "product"))

	err := database.Translate(sql.ErrNoRows, "product")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, "product not found", err.(*apperrors.AppError).Message)

	plain := errors.New("connection reset")
	assert.Equal(t, plain, database.Translate(plain, "product"))
}
