package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateID checks that id is a UUID string
func ValidateID(id string) error {
	if err := uuid.Validate(id); err != nil {
		return fmt.Errorf("invalid id %q", id)
	}
	return nil
}

// RequireText trims s and fails when nothing is left
func RequireText(field, s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	return trimmed, nil
}

// RequireMinLength trims s and fails when it has fewer than min characters
func RequireMinLength(field, s string, min int) (string, error) {
	trimmed, err := RequireText(field, s)
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(trimmed) < min {
		return "", fmt.Errorf("%s must be at least %d characters", field, min)
	}
	return trimmed, nil
}

// MoneyPlaces is the number of decimal places stored for money columns
const MoneyPlaces = 2

// ValidateAmount requires a strictly positive amount with at most MoneyPlaces decimals
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive: %s", amount.String())
	}
	return validateMoneyPlaces("amount", amount)
}

// ValidateBudget requires a non-negative allocation with at most MoneyPlaces decimals
func ValidateBudget(allocated decimal.Decimal) error {
	if allocated.IsNegative() {
		return fmt.Errorf("allocated budget must not be negative: %s", allocated.String())
	}
	return validateMoneyPlaces("allocated budget", allocated)
}

func validateMoneyPlaces(field string, value decimal.Decimal) error {
	if !value.Equal(value.Round(MoneyPlaces)) {
		return fmt.Errorf("%s must have at most %d decimal places: %s", field, MoneyPlaces, value.String())
	}
	return nil
}

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// SanitizeFileName keeps only the base name of an uploaded file
func SanitizeFileName(name string) string {
	name = SanitizeString(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
