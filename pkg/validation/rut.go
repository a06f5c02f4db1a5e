// Package validation holds the Chilean-specific and inventory field rules
// shared by the HTTP validator and the services.
package validation

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// ValidationResult contains the result of a validation
type ValidationResult struct {
	Valid     bool   `json:"valid"`
	Message   string `json:"message,omitempty"`
	Formatted string `json:"formatted,omitempty"`
}

// CleanRUT strips dots, dashes and spaces and upper-cases the check digit.
func CleanRUT(rut string) string {
	r := strings.NewReplacer(".", "", "-", "", " ", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(rut)))
}

// ComputeDV returns the modulo 11 check digit for a RUT body.
func ComputeDV(body string) (string, error) {
	if body == "" {
		return "", fmt.Errorf("empty rut body")
	}

	sum := 0
	factor := 2
	for i := len(body) - 1; i >= 0; i-- {
		c := body[i]
		if c < '0' || c > '9' {
			return "", fmt.Errorf("rut body must be numeric")
		}
		sum += int(c-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}

	switch rest := 11 - sum%11; rest {
	case 11:
		return "0", nil
	case 10:
		return "K", nil
	default:
		return strconv.Itoa(rest), nil
	}
}

// ValidateRUT checks a RUT in any of the usual spellings (12.345.678-5,
// 12345678-5, 123456785) and returns it formatted on success.
func ValidateRUT(rut string) *ValidationResult {
	clean := CleanRUT(rut)
	if len(clean) < 2 {
		return &ValidationResult{Valid: false, Message: "RUT is too short"}
	}

	body, dv := clean[:len(clean)-1], clean[len(clean)-1:]
	expected, err := ComputeDV(body)
	if err != nil {
		return &ValidationResult{Valid: false, Message: "RUT body must contain only digits"}
	}
	if dv != expected {
		return &ValidationResult{Valid: false, Message: "invalid RUT check digit"}
	}

	return &ValidationResult{Valid: true, Formatted: FormatRUT(clean)}
}

// IsValidRUT is ValidateRUT reduced to a bool.
func IsValidRUT(rut string) bool {
	return ValidateRUT(rut).Valid
}

// FormatRUT renders a RUT as 12.345.678-5. Input that is too short is returned unchanged.
func FormatRUT(rut string) string {
	clean := CleanRUT(rut)
	if len(clean) < 2 {
		return rut
	}
	body, dv := clean[:len(clean)-1], clean[len(clean)-1:]
	return groupThousands(body) + "-" + dv
}

// GenerateRUT returns a random valid formatted RUT between 10.000.000 and 25.999.999.
func GenerateRUT(rng *rand.Rand) string {
	n := 10_000_000 + rng.Intn(16_000_000)
	body := strconv.Itoa(n)
	dv, _ := ComputeDV(body)
	return FormatRUT(body + dv)
}
