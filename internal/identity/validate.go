package identity

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"gitlab.com/yelinaung/expense-tracker/internal/apperr"
	"gitlab.com/yelinaung/expense-tracker/internal/models"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9+\s().-]{6,}$`)
)

const (
	minAge = 10
	maxAge = 120
)

func validateEmail(email string) error {
	if email != "" && !emailPattern.MatchString(email) {
		return apperr.Validation("invalid email")
	}
	return nil
}

func validatePhone(phone string) error {
	if phone != "" && !phonePattern.MatchString(phone) {
		return apperr.Validation("invalid phone number")
	}
	return nil
}

// validateAge accepts 0 as "not given".
func validateAge(age int) error {
	if age != 0 && (age < minAge || age > maxAge) {
		return apperr.Validationf("age must be between %d and %d", minAge, maxAge)
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < models.MinPasswordLength {
		return apperr.Validationf("password must be at least %d characters", models.MinPasswordLength)
	}
	return nil
}

func sameEmail(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
