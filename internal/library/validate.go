package library

import (
	"regexp"

	"github.com/ivyscans/api/internal/apperr"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)
)

var (
	ErrInvalidUsername = apperr.New(apperr.KindValidation, "Username must be 3-64 characters: letters, digits, '.', '_' or '-'")
	ErrInvalidEmail    = apperr.New(apperr.KindValidation, "Invalid email format")
)

// ValidateUsername checks a trimmed username.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidateEmail checks a trimmed email address.
func ValidateEmail(email string) error {
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}
