package validation

import (
	"regexp"
	"strings"
)

var chileanMobile = regexp.MustCompile(`^\+569\d{8}$`)

// NormalizePhone strips separators and prefixes +56 when missing, so that
// "912345678", "56912345678" and "+56 9 1234 5678" all become +56912345678.
func NormalizePhone(phone string) string {
	p := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	switch {
	case p == "":
		return ""
	case strings.HasPrefix(p, "+56"):
		return p
	case strings.HasPrefix(p, "56") && len(p) == 11:
		return "+" + p
	default:
		return "+56" + strings.TrimPrefix(p, "+")
	}
}

// ValidatePhone normalizes phone and checks it is a Chilean mobile number.
func ValidatePhone(phone string) *ValidationResult {
	normalized := NormalizePhone(phone)
	if !chileanMobile.MatchString(normalized) {
		return &ValidationResult{Valid: false, Message: "phone must have the format +569XXXXXXXX"}
	}
	return &ValidationResult{Valid: true, Formatted: normalized}
}
