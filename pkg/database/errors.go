package database

import (
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/lib/pq"
	"github.com/maestranza/maestranza-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Duplicate(formatConstraintMessage(pqErr))

	// Foreign key violation (23503). On DELETE the row is still referenced,
	// on INSERT/UPDATE the referenced row does not exist.
	case "23503":
		if strings.Contains(pqErr.Message, "update or delete") {
			return errors.StateConflict(formatRestrictMessage(pqErr))
		}
		return errors.ValidationField(fkColumn(pqErr), "referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.ValidationField(col, "must not be empty")

	default:
		return nil
	}
}

// Translate maps sql.ErrNoRows to NotFound(resource) and pq errors to the
// taxonomy. Anything else is returned unchanged.
func Translate(err error, resource string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFound(resource)
	}
	if appErr := MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

// mapCheckConstraint maps specific CHECK constraint names to field-level messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "price_positive"):
		return errors.ValidationField("price", "must be greater than zero")
	case strings.Contains(constraint, "stock_non_negative"):
		return errors.ValidationField("stock", "must not be negative")
	case strings.Contains(constraint, "quantity_positive"):
		return errors.ValidationField("quantity", "must be greater than zero")
	case strings.Contains(constraint, "amount_positive"):
		return errors.ValidationField("amount", "must be greater than zero")
	case strings.Contains(constraint, "dates_ordered"):
		return errors.ValidationField("expiry_date", "must be after manufacture_date")
	case strings.Contains(constraint, "state_valid"):
		return errors.ValidationField("state", "unknown state")
	default:
		return errors.Validation(map[string]string{"constraint": constraint})
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "alerts_one_open"):
		return "product already has an open alert"
	case strings.Contains(constraint, "entries_order"):
		return "order already generated an entry"
	case strings.Contains(constraint, "kit_items_product"):
		return "duplicate product in kit"
	case strings.Contains(constraint, "barcode"):
		return "a product with this barcode already exists"
	case strings.Contains(constraint, "sku"):
		return "a product with this sku already exists"
	case strings.Contains(constraint, "rut"):
		return "a record with this rut already exists"
	case strings.Contains(constraint, "email"):
		return "a record with this email already exists"
	case strings.Contains(constraint, "code"):
		return "a record with this code already exists"
	case strings.Contains(constraint, "name"):
		return "a record with this name already exists"
	default:
		return "a record with these values already exists"
	}
}

func formatRestrictMessage(pqErr *pq.Error) string {
	if pqErr.Table != "" {
		return pqErr.Table + " is still referenced by other records"
	}
	return "record is still referenced by other records"
}

func fkColumn(pqErr *pq.Error) string {
	if pqErr.Column != "" {
		return pqErr.Column
	}
	// fk names follow <table>_<column>_fkey
	c := strings.TrimSuffix(pqErr.Constraint, "_fkey")
	if i := strings.Index(c, "_"); i >= 0 {
		return c[i+1:]
	}
	return "reference"
}
