package validation

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

const (
	minBarcodeLength = 8
	minSKULength     = 4
)

// ValidateBarcode requires at least eight digits and nothing else.
func ValidateBarcode(barcode string) *ValidationResult {
	b := strings.TrimSpace(barcode)
	if len(b) < minBarcodeLength {
		return &ValidationResult{Valid: false, Message: "barcode must have at least 8 digits"}
	}
	for _, r := range b {
		if !unicode.IsDigit(r) {
			return &ValidationResult{Valid: false, Message: "barcode must contain only digits"}
		}
	}
	return &ValidationResult{Valid: true, Formatted: b}
}

// ValidateSKU requires at least four characters and returns the SKU upper-cased.
func ValidateSKU(sku string) *ValidationResult {
	s := strings.ToUpper(strings.TrimSpace(sku))
	if len(s) < minSKULength {
		return &ValidationResult{Valid: false, Message: "sku must have at least 4 characters"}
	}
	if strings.ContainsAny(s, " \t") {
		return &ValidationResult{Valid: false, Message: "sku must not contain spaces"}
	}
	return &ValidationResult{Valid: true, Formatted: s}
}

// ValidatePrice requires a strictly positive amount.
func ValidatePrice(price decimal.Decimal) *ValidationResult {
	if !price.IsPositive() {
		return &ValidationResult{Valid: false, Message: "must be greater than zero"}
	}
	return &ValidationResult{Valid: true}
}

// ValidateStock requires a non-negative quantity.
func ValidateStock(stock int) *ValidationResult {
	if stock < 0 {
		return &ValidationResult{Valid: false, Message: "must not be negative"}
	}
	return &ValidationResult{Valid: true}
}

// ValidateLotDates checks that manufacture is not in the future and that
// expiry, when both are set, falls after manufacture.
func ValidateLotDates(manufacture, expiry *time.Time, now time.Time) map[string]string {
	errs := map[string]string{}
	if manufacture != nil && manufacture.After(now) {
		errs["manufacture_date"] = "must not be in the future"
	}
	if manufacture != nil && expiry != nil && !expiry.After(*manufacture) {
		errs["expiry_date"] = "must be after manufacture_date"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
